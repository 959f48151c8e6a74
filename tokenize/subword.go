package tokenize

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Subword splits text with a pretrained HuggingFace tokenizer.json model.
type Subword struct {
	tk *tokenizer.Tokenizer
}

// NewSubword loads the tokenizer definition at path.
func NewSubword(path string) (*Subword, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.WithHint(errors.New("subword tokenizer requires a tokenizer.json path"),
			"set tokenizer.path in the config file")
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load tokenizer %s", path)
	}
	return &Subword{tk: tk}, nil
}

// Tokenize normalizes text and returns subword pieces with their
// word-boundary markers removed.
func (s *Subword) Tokenize(text string) ([]string, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return []string{}, nil
	}
	// Pre-tokenizers only split on ASCII whitespace.
	normalized = strings.ReplaceAll(normalized, "\u3000", " ")
	enc, err := s.tk.EncodeSingle(normalized, false)
	if err != nil {
		return nil, errors.Wrap(err, "encode text")
	}
	out := make([]string, 0, len(enc.Tokens))
	for _, piece := range enc.Tokens {
		piece = strings.TrimPrefix(piece, "▁")
		piece = strings.TrimPrefix(piece, "##")
		if isBlank(piece) {
			continue
		}
		out = append(out, piece)
	}
	return out, nil
}
