// Package classifier trains, evaluates and queries a single-label Japanese
// text classifier by composing a tokenizer with an external backend.
package classifier

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"yashubustudio/textclassifier/corpus"
	"yashubustudio/textclassifier/tokenize"
)

// Service orchestrates loading, tokenization, side-file writing and backend calls.
// It keeps no state between calls beyond its configuration.
type Service struct {
	cfg       Config
	tokenizer tokenize.Tokenizer
	backend   Backend
	logger    *zap.Logger
}

// NewService constructs a service with the given tokenizer, backend and configuration.
func NewService(cfg Config, tok tokenize.Tokenizer, backend Backend, logger *zap.Logger) (*Service, error) {
	if tok == nil {
		return nil, errors.New("tokenizer is required")
	}
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		tokenizer: tok,
		backend:   backend,
		logger:    logger.With(zap.String("base_path", cfg.BasePath)),
	}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Fit trains a model from the labeled file at trainingPath.
func (s *Service) Fit(ctx context.Context, trainingPath string) error {
	mu := lockFor(s.cfg.BasePath)
	mu.Lock()
	defer mu.Unlock()

	texts, err := s.load(trainingPath)
	if err != nil {
		return err
	}
	if err := s.writeSideFile(texts); err != nil {
		return err
	}

	s.logger.Info("training", zap.String("input", s.cfg.SideFilePath()))
	start := time.Now()
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.Train(callCtx, s.cfg.SideFilePath(), s.cfg.BasePath); err != nil {
		return errors.Mark(errors.Wrap(err, "train model"), ErrBackend)
	}
	if _, err := os.Stat(s.cfg.ModelPath()); err != nil {
		return errors.Mark(errors.Wrapf(err, "trainer left no model at %s", s.cfg.ModelPath()), ErrBackend)
	}
	s.logger.Info("training finished",
		zap.String("model", s.cfg.ModelPath()),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// Evaluate scores the trained model against the labeled file at testPath.
// When label is non-empty only that label's documents are evaluated; a label
// absent from the file yields ErrLabelNotFound.
func (s *Service) Evaluate(ctx context.Context, testPath, label string) (*Metrics, error) {
	mu := lockFor(s.cfg.BasePath)
	mu.Lock()
	defer mu.Unlock()

	if err := s.requireModel(); err != nil {
		return nil, err
	}
	texts, err := s.load(testPath)
	if err != nil {
		return nil, err
	}
	if label != "" {
		if !texts.Has(label) {
			return nil, errors.WithHintf(
				errors.Wrapf(ErrLabelNotFound, "%q in %s", label, testPath),
				"labels present: %s", strings.Join(texts.Labels(), ", "))
		}
		texts = texts.Only(label)
		s.logger.Info("filtered by label", zap.String("label", label), zap.Int("count", texts.Len()))
	}
	if err := s.writeSideFile(texts); err != nil {
		return nil, err
	}

	s.logger.Info("evaluating", zap.String("model", s.cfg.ModelPath()))
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	metrics, err := s.backend.Test(callCtx, s.cfg.ModelPath(), s.cfg.SideFilePath())
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "test model"), ErrBackend)
	}
	s.logger.Info("evaluation finished",
		zap.Int("samples", metrics.Samples),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall))
	return metrics, nil
}

// Predict returns the most likely label for text.
func (s *Service) Predict(ctx context.Context, text string) (string, error) {
	mu := lockFor(s.cfg.BasePath)
	mu.Lock()
	defer mu.Unlock()

	if err := s.requireModel(); err != nil {
		return "", err
	}
	tokens, err := s.tokenizer.Tokenize(text)
	if err != nil {
		return "", errors.Wrap(err, "tokenize input")
	}
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	label, err := s.backend.PredictLabel(callCtx, s.cfg.ModelPath(), tokenize.Join(tokens))
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "predict label"), ErrBackend)
	}
	return strings.TrimPrefix(label, s.cfg.SideFile.LabelPrefix), nil
}

func (s *Service) load(path string) (*corpus.Labeled, error) {
	s.logger.Info("loading", zap.String("path", path))
	texts, err := corpus.Load(path, corpus.LoadOptions{
		Format:      corpus.DefaultFormat,
		OnMalformed: s.cfg.OnMalformed,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if texts.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptyCorpus, "%s", path)
	}
	return texts, nil
}

// writeSideFile tokenizes every document and writes the result to the side-file.
func (s *Service) writeSideFile(texts *corpus.Labeled) error {
	s.logger.Info("tokenizing", zap.Int("count", texts.Len()), zap.Int("labels", len(texts.Labels())))
	tokenized, err := texts.Map(func(text string) (string, error) {
		tokens, err := s.tokenizer.Tokenize(text)
		if err != nil {
			return "", err
		}
		return tokenize.Join(tokens), nil
	})
	if err != nil {
		return errors.Wrap(err, "tokenize corpus")
	}
	s.logger.Info("writing", zap.String("path", s.cfg.SideFilePath()))
	if err := corpus.Write(s.cfg.SideFilePath(), tokenized, s.cfg.SideFile); err != nil {
		return errors.Wrap(err, "write side-file")
	}
	return nil
}

func (s *Service) requireModel() error {
	if _, err := os.Stat(s.cfg.ModelPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.WithHint(
				errors.Wrapf(ErrModelNotTrained, "no model at %s", s.cfg.ModelPath()),
				"run the train command first")
		}
		return errors.Mark(errors.Wrap(err, "stat model"), corpus.ErrIO)
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
