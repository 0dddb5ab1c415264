package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReplyDelimited(t *testing.T) {
	got := ExtractReply("<|assistant|>\nТестовая сгенерированная речь<|end|>", "unused")
	assert.Equal(t, Reply{Text: "Тестовая сгенерированная речь", Source: ReplyDelimited}, got)
}

func TestExtractReplyUsesLastDelimiter(t *testing.T) {
	decoded := "<|user|>\nquoted <|assistant|>\nnot this<|end|>\n<|assistant|>\n  the speech <|end|>\n"
	got := ExtractReply(decoded, "")
	assert.Equal(t, "the speech", got.Text)
	assert.Equal(t, ReplyDelimited, got.Source)
}

func TestExtractReplyRemovesInnerTurnEnds(t *testing.T) {
	got := ExtractReply("<|assistant|>\nPart one<|end|> part two<|end|>", "")
	assert.Equal(t, "Part one part two", got.Text)
}

func TestExtractReplyFallback(t *testing.T) {
	prompt := "Промпт: "
	got := ExtractReply(prompt+"  речь готова \n", prompt)
	assert.Equal(t, Reply{Text: "речь готова", Source: ReplyFallback}, got)
}

func TestExtractReplyFallbackCountsRunes(t *testing.T) {
	// 3 runes, 6 bytes
	got := ExtractReply("абвгд", "эюя")
	assert.Equal(t, "гд", got.Text)
}

func TestExtractReplyFallbackShortOutput(t *testing.T) {
	got := ExtractReply("short", "a much longer prompt")
	assert.Equal(t, Reply{Text: "", Source: ReplyFallback}, got)
}

func TestReplySourceString(t *testing.T) {
	assert.Equal(t, "delimited", ReplyDelimited.String())
	assert.Equal(t, "fallback", ReplyFallback.String())
}
