package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cf commonFlags
	root := &cobra.Command{
		Use:           "speechwriter",
		Short:         "Speech transcript generation service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addCommonFlags(root, &cf)

	root.AddCommand(
		newServeCmd(&cf),
		newPromptCmd(&cf),
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}
