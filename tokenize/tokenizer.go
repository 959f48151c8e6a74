// Package tokenize segments Japanese text into surface-form tokens.
package tokenize

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Tokenizer exposes the minimal surface required by the classifier service.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// Kind names a tokenizer backend.
type Kind string

const (
	// KindKagome segments with the kagome morphological analyzer and the IPA dictionary.
	KindKagome Kind = "kagome"
	// KindSubword splits with a HuggingFace tokenizer.json model.
	KindSubword Kind = "subword"
)

// ErrUnknownKind is returned by New for an unsupported backend name.
var ErrUnknownKind = errors.New("unknown tokenizer kind")

// New returns a tokenizer for the given kind. The kagome tokenizer is shared
// process-wide; path is only used by the subword tokenizer.
func New(kind Kind, path string) (Tokenizer, error) {
	switch kind {
	case "", KindKagome:
		k, err := Default()
		if err != nil {
			return nil, err
		}
		return k, nil
	case KindSubword:
		s, err := NewSubword(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.WithHint(
			errors.Wrapf(ErrUnknownKind, "%q", string(kind)),
			"supported kinds are \"kagome\" and \"subword\"")
	}
}

// Join concatenates tokens with a single ASCII space.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
