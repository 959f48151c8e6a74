package app

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"yashubustudio/textclassifier/classifier"
	"yashubustudio/textclassifier/corpus"
	"yashubustudio/textclassifier/fasttext"
	"yashubustudio/textclassifier/tokenize"
)

const envPrefix = "TEXTCLASSIFIER"

// Config is the command-line application's configuration.
type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	SideFile  corpus.Format   `mapstructure:"side_file"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Log       LogConfig       `mapstructure:"log"`
}

// ModelConfig locates the side-file and model on disk.
type ModelConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// TokenizerConfig selects the tokenizer backend.
type TokenizerConfig struct {
	Kind tokenize.Kind `mapstructure:"kind"`
	// Path is the tokenizer.json file used by the subword tokenizer.
	Path string `mapstructure:"path"`
}

// CorpusConfig controls how input files are read.
type CorpusConfig struct {
	OnMalformed corpus.MalformedPolicy `mapstructure:"on_malformed"`
}

// BackendConfig is the fastText command plus a per-call timeout.
type BackendConfig struct {
	fasttext.Config `mapstructure:",squash"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.base_path", "model")

	v.SetDefault("tokenizer.kind", string(tokenize.KindKagome))
	v.SetDefault("tokenizer.path", "")

	v.SetDefault("corpus.on_malformed", string(corpus.MalformedAbort))

	// fastText only recognises labels carrying the __label__ prefix.
	v.SetDefault("side_file.separator", " ")
	v.SetDefault("side_file.label_prefix", "__label__")

	v.SetDefault("backend.command", fasttext.DefaultCommand)
	v.SetDefault("backend.train_args", []string{})
	v.SetDefault("backend.timeout", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads defaults, the optional config file at path and
// TEXTCLASSIFIER_* environment variables, in increasing precedence.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	path = strings.TrimSpace(path)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Model.BasePath) == "" {
		c.Model.BasePath = "model"
	}
	if c.Tokenizer.Kind == "" {
		c.Tokenizer.Kind = tokenize.KindKagome
	}
	if c.Corpus.OnMalformed == "" {
		c.Corpus.OnMalformed = corpus.MalformedAbort
	}
	if c.SideFile.Separator == "" {
		c.SideFile.Separator = " "
		if c.SideFile.LabelPrefix == "" {
			c.SideFile.LabelPrefix = "__label__"
		}
	}
	if strings.TrimSpace(c.Backend.Command) == "" {
		c.Backend.Command = fasttext.DefaultCommand
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate rejects values no component can act on.
func (c Config) Validate() error {
	switch c.Tokenizer.Kind {
	case tokenize.KindKagome:
	case tokenize.KindSubword:
		if strings.TrimSpace(c.Tokenizer.Path) == "" {
			return errors.WithHint(errors.New("tokenizer.path is required for the subword tokenizer"),
				"point tokenizer.path at a tokenizer.json file")
		}
	default:
		return errors.Wrapf(tokenize.ErrUnknownKind, "tokenizer.kind %q", c.Tokenizer.Kind)
	}
	switch c.Corpus.OnMalformed {
	case corpus.MalformedAbort, corpus.MalformedSkip:
	default:
		return errors.Newf("corpus.on_malformed must be %q or %q, got %q",
			corpus.MalformedAbort, corpus.MalformedSkip, c.Corpus.OnMalformed)
	}
	if c.Backend.Timeout < 0 {
		return errors.Newf("backend.timeout must not be negative, got %s", c.Backend.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Newf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Classifier returns the facade configuration derived from c.
func (c Config) Classifier() classifier.Config {
	return classifier.Config{
		BasePath:    c.Model.BasePath,
		SideFile:    c.SideFile,
		OnMalformed: c.Corpus.OnMalformed,
		Timeout:     c.Backend.Timeout,
	}
}
