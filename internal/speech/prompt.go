package speech

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Chat delimiters the model was instruction-tuned on. The assistant turn is
// left open so the model continues it.
const (
	SystemStart    = "<|system|>"
	UserStart      = "<|user|>"
	AssistantStart = "<|assistant|>"
	TurnEnd        = "<|end|>"
)

const SystemPrompt = "Ты - профессиональный спичрайтер и оратор. " +
	"Твоя задача - написать качественную, структурированную речь на заданную тему. " +
	"Речь должна быть естественной, убедительной и подходящей для устного выступления."

// UserInstruction closes every user turn.
const UserInstruction = "Пожалуйста, напиши полноценную речь с вступлением, основной частью и заключением. " +
	"Речь должна быть готова для непосредственного произнесения."

const (
	keyPointsHeader    = "Ключевые моменты для раскрытия:"
	instructionsHeader = "Дополнительные требования:"
)

// ErrInvalidStyle is returned when the requested style is not in the catalog.
var ErrInvalidStyle = errors.New("неизвестный стиль")

// styleError carries the user-facing message and matches ErrInvalidStyle.
type styleError struct {
	msg string
}

func (e *styleError) Error() string { return e.msg }
func (e *styleError) Unwrap() error { return ErrInvalidStyle }

// BuildPrompt renders req into a chat-formatted prompt using the style
// descriptions in styles. It has no side effects.
func BuildPrompt(req Request, styles map[string]string) (string, error) {
	description, ok := styles[req.Style]
	if !ok {
		return "", &styleError{msg: fmt.Sprintf("Стиль '%s' не найден. Доступные стили: %s",
			req.Style, strings.Join(styleNames(styles), ", "))}
	}

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "Тема речи: %s\n", req.Topic)
	fmt.Fprintf(&b, "Длительность: %d минут\n", req.DurationMinutes)
	fmt.Fprintf(&b, "Стиль выступления: %s\n", description)
	fmt.Fprintf(&b, "Язык: %s\n\n", req.Language)

	if len(req.KeyPoints) > 0 {
		b.WriteString(keyPointsHeader)
		b.WriteString("\n")
		for i, point := range req.KeyPoints {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- ")
			b.WriteString(point)
		}
		b.WriteString("\n\n")
	}
	if req.CustomInstructions != nil && *req.CustomInstructions != "" {
		b.WriteString(instructionsHeader)
		b.WriteString("\n")
		b.WriteString(*req.CustomInstructions)
		b.WriteString("\n\n")
	}
	b.WriteString(UserInstruction)

	return ChatTranscript(SystemPrompt, b.String()), nil
}

// ChatTranscript wraps system and user text into the three-turn grammar:
// a system turn, a user turn and an unterminated assistant turn.
func ChatTranscript(system, user string) string {
	var b strings.Builder
	b.Grow(len(system) + len(user) + 64)
	b.WriteString(SystemStart + "\n")
	b.WriteString(system)
	b.WriteString(TurnEnd + "\n")
	b.WriteString(UserStart + "\n")
	b.WriteString(user)
	b.WriteString(TurnEnd + "\n")
	b.WriteString(AssistantStart + "\n")
	return b.String()
}

func styleNames(styles map[string]string) []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
