package corpus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	// ErrIO marks failures to read, decode or write a corpus file.
	ErrIO = errors.New("corpus i/o error")
	// ErrMalformedRecord marks a line without the label/text separator.
	ErrMalformedRecord = errors.New("malformed record")
)

// MalformedRecordError describes the offending line of a corpus file.
type MalformedRecordError struct {
	Path string
	Line int
	Text string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: missing separator in %q", e.Path, e.Line, e.Text)
}

// Unwrap lets errors.Is match ErrMalformedRecord.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Format describes how a label and its text share a line.
type Format struct {
	Separator   string `mapstructure:"separator"`
	LabelPrefix string `mapstructure:"label_prefix"`
}

// DefaultFormat is the plain "label,text" layout.
var DefaultFormat = Format{Separator: ","}

// ApplyDefaults populates zero values.
func (f *Format) ApplyDefaults() {
	if f.Separator == "" {
		f.Separator = DefaultFormat.Separator
	}
}

// MalformedPolicy selects what Load does with a line lacking the separator.
type MalformedPolicy string

const (
	// MalformedAbort fails the whole load on the first malformed line.
	MalformedAbort MalformedPolicy = "abort"
	// MalformedSkip logs the line and continues.
	MalformedSkip MalformedPolicy = "skip"
)

// LoadOptions controls Load.
type LoadOptions struct {
	Format      Format
	OnMalformed MalformedPolicy
	Logger      *zap.Logger
}

const maxLineBytes = 1024 * 1024

// Load reads a corpus file, splitting each line on the first separator only.
// Any I/O or decoding failure fails the whole load.
func Load(path string, opts LoadOptions) (*Labeled, error) {
	opts.Format.ApplyDefaults()
	if opts.OnMalformed == "" {
		opts.OnMalformed = MalformedAbort
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open %s", filepath.Base(path)), ErrIO)
	}
	defer f.Close()

	out := New()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !utf8.ValidString(line) {
			return nil, errors.Mark(errors.Newf("%s:%d: invalid UTF-8", path, lineNo), ErrIO)
		}
		if line == "" {
			continue
		}
		label, text, ok := strings.Cut(line, opts.Format.Separator)
		if !ok {
			recErr := &MalformedRecordError{Path: path, Line: lineNo, Text: line}
			if opts.OnMalformed == MalformedSkip {
				skipped++
				logger.Warn("skipping malformed record",
					zap.String("path", path),
					zap.Int("line", lineNo))
				continue
			}
			return nil, errors.WithStack(recErr)
		}
		label = strings.TrimPrefix(label, opts.Format.LabelPrefix)
		out.Add(label, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "scan %s", filepath.Base(path)), ErrIO)
	}
	logger.Debug("corpus loaded",
		zap.String("path", path),
		zap.Int("count", out.Len()),
		zap.Int("labels", len(out.Labels())),
		zap.Int("skipped", skipped))
	return out, nil
}

// Write serializes every document as one "label<sep>text" line in Entries
// order. The file is replaced atomically; on error the previous content is kept.
// A label containing whitespace or the separator is rejected with
// ErrMalformedRecord before anything is written.
func Write(path string, c *Labeled, format Format) error {
	format.ApplyDefaults()
	if err := checkLabels(c, format); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Mark(errors.Wrap(err, "create corpus dir"), ErrIO)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "create corpus file"), ErrIO)
	}
	if err := writeEntries(f, c, format); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Mark(errors.Wrapf(err, "write %s", filepath.Base(path)), ErrIO)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Mark(errors.Wrap(err, "close corpus file"), ErrIO)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Mark(errors.Wrap(err, "rename corpus file"), ErrIO)
	}
	return nil
}

// checkLabels rejects labels that would not read back as a single field.
// fastText ends a label at the first whitespace, whatever the separator.
func checkLabels(c *Labeled, format Format) error {
	for _, label := range c.Labels() {
		if strings.IndexFunc(label, unicode.IsSpace) >= 0 || strings.Contains(label, format.Separator) {
			return errors.Mark(
				errors.Newf("label %q contains whitespace or the separator %q", label, format.Separator),
				ErrMalformedRecord)
		}
	}
	return nil
}

func writeEntries(f *os.File, c *Labeled, format Format) error {
	w := bufio.NewWriter(f)
	for _, e := range c.Entries() {
		if _, err := w.WriteString(format.LabelPrefix + e.Label + format.Separator + e.Text + "\n"); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
