// Package fasttext drives the fastText command-line tool as a classifier backend.
package fasttext

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"yashubustudio/textclassifier/classifier"
)

// DefaultCommand is used when Config.Command is empty.
const DefaultCommand = "fasttext"

const (
	stderrTail = 2048
	// waitDelay bounds how long output is drained after the process is killed.
	waitDelay = time.Second
)

// Config selects the fastText executable and extra training options.
type Config struct {
	// Command is a shell-style command line, e.g. "fasttext" or
	// "docker run --rm -v /data:/data fasttext".
	Command string `mapstructure:"command"`
	// TrainArgs are appended to the supervised invocation, e.g. ["-epoch", "25"].
	TrainArgs []string `mapstructure:"train_args"`
}

// InvocationError reports a failed fastText run.
type InvocationError struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("fasttext %s: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Backend runs fastText as a subprocess for every call, so the model is read
// from disk each time.
type Backend struct {
	argv      []string
	trainArgs []string
	logger    *zap.Logger
}

var _ classifier.Backend = (*Backend)(nil)

// New parses the configured command line.
func New(cfg Config, logger *zap.Logger) (*Backend, error) {
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = DefaultCommand
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parse fasttext command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.New("fasttext command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		argv:      argv,
		trainArgs: append([]string(nil), cfg.TrainArgs...),
		logger:    logger,
	}, nil
}

// Train runs "supervised -input <input> -output <outputBase>".
func (b *Backend) Train(ctx context.Context, input, outputBase string) error {
	args := append([]string{"supervised", "-input", input, "-output", outputBase}, b.trainArgs...)
	_, err := b.run(ctx, "supervised", nil, args)
	return err
}

// Test runs "test <model> <testPath>" and parses the reported sample count,
// precision and recall.
func (b *Backend) Test(ctx context.Context, modelPath, testPath string) (*classifier.Metrics, error) {
	out, err := b.run(ctx, "test", nil, []string{"test", modelPath, testPath})
	if err != nil {
		return nil, err
	}
	return parseTestOutput(out)
}

// PredictLabel feeds text to "predict <model> -" and returns the first label printed.
func (b *Backend) PredictLabel(ctx context.Context, modelPath, text string) (string, error) {
	line := strings.ReplaceAll(text, "\n", " ") + "\n"
	out, err := b.run(ctx, "predict", strings.NewReader(line), []string{"predict", modelPath, "-"})
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", &InvocationError{Op: "predict", Err: errors.New("no label returned")}
	}
	return fields[0], nil
}

func (b *Backend) run(ctx context.Context, op string, stdin io.Reader, args []string) (string, error) {
	full := append(append([]string(nil), b.argv[1:]...), args...)
	cmd := exec.CommandContext(ctx, b.argv[0], full...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	b.logger.Debug("running fasttext", zap.String("operation", op), zap.Strings("args", full))
	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.CombineErrors(ctxErr, err)
		}
		return "", &InvocationError{Op: op, Args: full, Stderr: tail(stderr.String()), Err: err}
	}
	b.logger.Debug("fasttext finished",
		zap.String("operation", op),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return stdout.String(), nil
}

// parseTestOutput accepts both the tab separated report ("N\t10", "P@1\t0.9")
// and the older colon form ("P@1: 0.9", "Number of examples: 10").
func parseTestOutput(out string) (*classifier.Metrics, error) {
	m := &classifier.Metrics{Raw: strings.TrimSpace(out)}
	found := false
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := splitMetric(line)
		if !ok {
			continue
		}
		switch {
		case key == "N" || key == "Number of examples":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.Wrapf(err, "parse sample count %q", value)
			}
			m.Samples = n
			found = true
		case strings.HasPrefix(key, "P@"):
			p, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parse precision %q", value)
			}
			m.Precision = p
			found = true
		case strings.HasPrefix(key, "R@"):
			r, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parse recall %q", value)
			}
			m.Recall = r
			found = true
		}
	}
	if !found {
		return nil, errors.Newf("unrecognized fasttext test output: %q", m.Raw)
	}
	return m, nil
}

func splitMetric(line string) (string, string, bool) {
	if key, value, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(key), strings.TrimSpace(value), true
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTail {
		return s
	}
	return "..." + s[len(s)-stderrTail:]
}
