package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"yashubustudio/textclassifier/classifier"
	"yashubustudio/textclassifier/fasttext"
	"yashubustudio/textclassifier/tokenize"
)

// NewService wires the configured tokenizer and fastText backend into a classifier.
func NewService(cfg Config, logger *zap.Logger) (*classifier.Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tok, err := tokenize.New(cfg.Tokenizer.Kind, cfg.Tokenizer.Path)
	if err != nil {
		return nil, errors.Wrap(err, "init tokenizer")
	}
	backend, err := fasttext.New(cfg.Backend.Config, logger.Named("fasttext"))
	if err != nil {
		return nil, errors.Wrap(err, "init backend")
	}
	svc, err := classifier.NewService(cfg.Classifier(), tok, backend, logger)
	if err != nil {
		return nil, errors.Wrap(err, "init classifier")
	}
	return svc, nil
}

// Run trains on trainPath and then evaluates every label in evalPath.
func Run(ctx context.Context, svc *classifier.Service, trainPath, evalPath string) (*classifier.Metrics, error) {
	if err := svc.Fit(ctx, trainPath); err != nil {
		return nil, errors.Wrap(err, "fit")
	}
	metrics, err := svc.Evaluate(ctx, evalPath, "")
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	return metrics, nil
}
