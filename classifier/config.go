package classifier

import (
	"time"

	"yashubustudio/textclassifier/corpus"
)

const (
	sideFileExt = ".csv"
	modelExt    = ".bin"
)

// Config controls where the service keeps its files and how it talks to the backend.
type Config struct {
	// BasePath is the prefix for the side-file (<base>.csv) and the model (<base>.bin).
	BasePath    string                 `mapstructure:"base_path"`
	SideFile    corpus.Format          `mapstructure:"side_file"`
	OnMalformed corpus.MalformedPolicy `mapstructure:"on_malformed"`
	// Timeout bounds each backend call. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "model"
	}
	c.SideFile.ApplyDefaults()
	if c.OnMalformed == "" {
		c.OnMalformed = corpus.MalformedAbort
	}
}

// SideFilePath returns the tokenized corpus path shared by Fit and Evaluate.
func (c Config) SideFilePath() string {
	return c.BasePath + sideFileExt
}

// ModelPath returns the path of the persisted model.
func (c Config) ModelPath() string {
	return c.BasePath + modelExt
}
