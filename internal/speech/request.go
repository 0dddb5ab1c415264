package speech

const (
	DefaultStyle    = "professional"
	DefaultLanguage = "ru"
)

// Request is the input to speech generation.
type Request struct {
	Topic              string   `json:"topic"`
	DurationMinutes    int      `json:"duration_minutes"`
	Style              string   `json:"style"`
	KeyPoints          []string `json:"key_points,omitempty"`
	Language           string   `json:"language"`
	CustomInstructions *string  `json:"custom_instructions,omitempty"`
}

// NewRequest returns a request with the default style and language applied.
func NewRequest(topic string, durationMinutes int) Request {
	return Request{
		Topic:           topic,
		DurationMinutes: durationMinutes,
		Style:           DefaultStyle,
		Language:        DefaultLanguage,
	}
}

// Style is a named catalog entry that steers the tone of a speech.
type Style struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
