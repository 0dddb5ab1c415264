package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"speechwriter/internal/catalog"
	"speechwriter/internal/config"
	"speechwriter/internal/speech"
)

type promptFlags struct {
	topic         string
	duration      int
	style         string
	language      string
	keyPoints     []string
	instructions  string
	stylesBackend string
	stylesPath    string
	bucket        string
}

// newPromptCmd prints the chat transcript a request would send to the model.
func newPromptCmd(cf *commonFlags) *cobra.Command {
	var pf promptFlags
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the model prompt for a speech request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, cf, config.Overrides{
				StylesBackend: changed(cmd, "styles-backend", pf.stylesBackend),
				StylesPath:    changed(cmd, "styles-path", pf.stylesPath),
				S3Bucket:      changed(cmd, "bucket", pf.bucket),
			})
			if err != nil {
				return err
			}
			if err := config.ValidateStyles(cfg); err != nil {
				return err
			}
			store, err := newStyleStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			styles, err := catalog.New(store).All(cmd.Context())
			if err != nil {
				return err
			}

			req := speech.NewRequest(pf.topic, pf.duration)
			req.Style = pf.style
			req.Language = pf.language
			req.KeyPoints = pf.keyPoints
			if pf.instructions != "" {
				req.CustomInstructions = &pf.instructions
			}
			prompt, err := speech.BuildPrompt(req, styles)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), prompt)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&pf.topic, "topic", "", "Speech topic")
	fs.IntVar(&pf.duration, "duration", 5, "Duration in minutes")
	fs.StringVar(&pf.style, "style", speech.DefaultStyle, "Style name from the catalog")
	fs.StringVar(&pf.language, "language", speech.DefaultLanguage, "Speech language")
	fs.StringArrayVar(&pf.keyPoints, "key-point", nil, "Key point to cover (repeatable)")
	fs.StringVar(&pf.instructions, "instructions", "", "Additional requirements")
	fs.StringVar(&pf.stylesBackend, "styles-backend", "", "Style catalog backend: file, s3")
	fs.StringVar(&pf.stylesPath, "styles-path", "", "Style catalog file for the file backend")
	fs.StringVar(&pf.bucket, "bucket", "", "S3 bucket for the s3 backend")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
