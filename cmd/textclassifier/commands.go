package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yashubustudio/textclassifier/classifier"
	"yashubustudio/textclassifier/internal/app"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "textclassifier",
		Short: "Train, evaluate and query a Japanese text classifier",
		Long: `textclassifier tokenizes labeled Japanese text with kagome and trains a
fastText model on it.

Input files hold one "label,text" document per line; only the first comma
separates the label.

Examples:
  textclassifier train --base model --input train.csv
  textclassifier evaluate --base model --input test.csv --label pos
  textclassifier predict --base model とても良い商品です
  textclassifier run model train.csv test.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML, TOML or JSON config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (console or json)")

	root.AddCommand(newTrainCmd(opts), newEvaluateCmd(opts), newPredictCmd(opts), newRunCmd(opts))
	return root
}

// setup loads configuration and builds the logger and classifier for one invocation.
func (o *rootOptions) setup(cmd *cobra.Command, basePath string) (*classifier.Service, *zap.Logger, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if basePath = strings.TrimSpace(basePath); basePath != "" {
		cfg.Model.BasePath = basePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "init logger")
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("command", cmd.Name()))

	svc, err := app.NewService(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return svc, logger, nil
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	var basePath, input string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a labeled file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.setup(cmd, basePath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if err := svc.Fit(cmd.Context(), input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model written to %s\n", svc.Config().ModelPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "Model base path (<base>.csv and <base>.bin)")
	cmd.Flags().StringVar(&input, "input", "", "Labeled training file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var basePath, input, label string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a trained model against a labeled file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.setup(cmd, basePath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			metrics, err := svc.Evaluate(cmd.Context(), input, label)
			if err != nil {
				return err
			}
			return renderMetrics(cmd.OutOrStdout(), metrics)
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "Model base path (<base>.csv and <base>.bin)")
	cmd.Flags().StringVar(&input, "input", "", "Labeled evaluation file")
	cmd.Flags().StringVar(&label, "label", "", "Only evaluate documents with this label")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "predict [TEXT...]",
		Short: "Predict the label of a text (one text per stdin line when no arguments are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.setup(cmd, basePath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if len(args) > 0 {
				return predictOne(cmd.Context(), svc, cmd.OutOrStdout(), strings.Join(args, " "))
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if err := predictOne(cmd.Context(), svc, cmd.OutOrStdout(), text); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "read stdin")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "Model base path (<base>.bin)")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run BASE TRAIN EVAL",
		Short: "Train on TRAIN, then evaluate every label in EVAL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.setup(cmd, args[0])
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			metrics, err := app.Run(cmd.Context(), svc, args[1], args[2])
			if err != nil {
				return err
			}
			return renderMetrics(cmd.OutOrStdout(), metrics)
		},
	}
}

func predictOne(ctx context.Context, svc *classifier.Service, w io.Writer, text string) error {
	label, err := svc.Predict(ctx, text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, label)
	return err
}

func renderMetrics(w io.Writer, m *classifier.Metrics) error {
	data := pterm.TableData{
		{"Samples", "Precision", "Recall"},
		{strconv.Itoa(m.Samples), strconv.FormatFloat(m.Precision, 'f', 3, 64), strconv.FormatFloat(m.Recall, 'f', 3, 64)},
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
