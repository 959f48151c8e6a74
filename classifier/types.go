package classifier

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBackend marks a failed train, test or predict call to the backend.
	ErrBackend = errors.New("classifier backend failed")
	// ErrModelNotTrained is returned when no model exists at the configured base path.
	ErrModelNotTrained = errors.New("model not trained")
	// ErrLabelNotFound is returned when an evaluation label filter matches no documents.
	ErrLabelNotFound = errors.New("label not found")
	// ErrEmptyCorpus is returned when a corpus file holds no documents.
	ErrEmptyCorpus = errors.New("corpus is empty")
)

// Metrics holds what the backend reports for an evaluation run.
type Metrics struct {
	Samples   int     `json:"samples"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	// Raw is the backend's unparsed report.
	Raw string `json:"raw,omitempty"`
}

// Backend trains and queries a supervised text classifier. Files are
// exchanged by path; the model format is owned by the backend.
type Backend interface {
	// Train reads the side-file at input and persists a model under outputBase.
	Train(ctx context.Context, input, outputBase string) error
	// Test evaluates the model against a side-file.
	Test(ctx context.Context, modelPath, testPath string) (*Metrics, error)
	// PredictLabel returns the single best label for space-joined tokens.
	PredictLabel(ctx context.Context, modelPath, text string) (string, error)
}
