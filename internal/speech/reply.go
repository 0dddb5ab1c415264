package speech

import "strings"

// ReplySource tells which branch of ExtractReply produced the text.
type ReplySource int

const (
	// ReplyDelimited: the assistant delimiter was present in the output.
	ReplyDelimited ReplySource = iota
	// ReplyFallback: no delimiter; the prompt's span was cut off the front.
	ReplyFallback
)

func (s ReplySource) String() string {
	switch s {
	case ReplyDelimited:
		return "delimited"
	case ReplyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Reply is the assistant text recovered from decoded model output.
type Reply struct {
	Text   string
	Source ReplySource
}

const assistantMarker = AssistantStart + "\n"

// ExtractReply recovers the assistant turn from the decoded output of a
// generation call that was fed prompt.
func ExtractReply(decoded, prompt string) Reply {
	if idx := strings.LastIndex(decoded, assistantMarker); idx >= 0 {
		text := decoded[idx+len(assistantMarker):]
		text = strings.ReplaceAll(text, TurnEnd, "")
		return Reply{Text: strings.TrimSpace(text), Source: ReplyDelimited}
	}
	return Reply{Text: strings.TrimSpace(dropRunes(decoded, len([]rune(prompt)))), Source: ReplyFallback}
}

// dropRunes returns s without its first n runes.
func dropRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[pos:]
		}
		i++
	}
	return ""
}
