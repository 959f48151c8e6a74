package tokenize

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Kagome segments normalized text with the IPA dictionary.
type Kagome struct {
	t *tokenizer.Tokenizer
}

var defaultKagome = sync.OnceValues(func() (*Kagome, error) {
	return NewKagome()
})

// Default returns the shared kagome tokenizer. The dictionary is loaded on
// first use and reused for the life of the process.
func Default() (*Kagome, error) {
	return defaultKagome()
}

// NewKagome builds a kagome tokenizer backed by the IPA dictionary.
// Prefer Default unless an isolated instance is required.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, errors.Wrap(err, "init kagome tokenizer")
	}
	return &Kagome{t: t}, nil
}

// Tokenize normalizes text and returns its surface forms in order.
// Whitespace-only surfaces are dropped.
func (k *Kagome) Tokenize(text string) ([]string, error) {
	if k == nil || k.t == nil {
		return nil, errors.New("kagome tokenizer is not initialized")
	}
	normalized := Normalize(text)
	if normalized == "" {
		return []string{}, nil
	}
	tokens := k.t.Tokenize(normalized)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isBlank(tok.Surface) {
			continue
		}
		out = append(out, tok.Surface)
	}
	return out, nil
}
