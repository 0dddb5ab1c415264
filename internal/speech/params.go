package speech

import "sync/atomic"

// Params governs decoding for every generation call.
type Params struct {
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	MaxLength         int     `json:"max_length"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	DoSample          bool    `json:"do_sample"`
}

func DefaultParams() Params {
	return Params{
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              50,
		MaxLength:         2048,
		MaxNewTokens:      2048,
		RepetitionPenalty: 1.1,
		DoSample:          true,
	}
}

// ParamStore holds the live Params. Readers always see one complete record:
// Replace swaps a pointer to a fresh copy and nothing mutates a stored record.
// Values are not range checked; the model runtime owns invalid input.
type ParamStore struct {
	cur atomic.Pointer[Params]
}

// NewParamStore returns a store initialised to DefaultParams.
func NewParamStore() *ParamStore {
	s := &ParamStore{}
	s.Replace(DefaultParams())
	return s
}

// Current returns a snapshot of the live parameters.
func (s *ParamStore) Current() Params {
	return *s.cur.Load()
}

// Replace installs p as the live parameters, all fields at once.
func (s *ParamStore) Replace(p Params) {
	s.cur.Store(&p)
}
