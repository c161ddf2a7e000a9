package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/JonMunkholm/tabula/internal/core"
	"github.com/JonMunkholm/tabula/internal/logging"
	"github.com/JonMunkholm/tabula/internal/pipeline"
	"github.com/JonMunkholm/tabula/internal/transform"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabula",
		Short: "Run tabular transformation pipelines over CSV files",
		Long: `tabula applies an ordered pipeline of named transformations to a CSV file
and writes the result as JSON records or CSV.

Pipelines are lists of {name, params} steps written in JSON, YAML or TOML.
TOML files hold the list under a top-level "steps" key.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered transformers and their params",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := core.NewService(transform.NewCatalogue(), config.TransformConfig{})
			defer svc.Close()

			out := cmd.OutOrStdout()
			for _, t := range svc.ListTransformers() {
				params := make([]string, len(t.Params))
				for i, p := range t.Params {
					params[i] = p.Name + ":" + p.Type
				}
				fmt.Fprintf(out, "  %-18s %-34s %s\n", t.Name, strings.Join(params, " "), t.Description)
			}
			return nil
		},
	}
}

type runOptions struct {
	input    string
	pipeline string
	format   string
	output   string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a pipeline to a CSV file",
		Example: `  tabula run --input people.csv --pipeline steps.yaml
  tabula run --input - --pipeline steps.json --format csv --output out.csv < people.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "CSV file to transform, or - for stdin")
	f.StringVarP(&opts.pipeline, "pipeline", "p", "", "pipeline file (.json, .yaml, .yml or .toml)")
	f.StringVarP(&opts.format, "format", "f", "json", "output format: json or csv")
	f.StringVarP(&opts.output, "output", "o", "", "write the result here instead of stdout")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts runOptions) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q: want json or csv", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))

	in, closeIn, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	defer closeIn()

	ds, err := core.DecodeCSV(core.NewLimitedReader(in, cfg.Transform.MaxFileSize))
	if err != nil {
		return userError(err)
	}

	raw, err := loadPipelineFile(opts.pipeline)
	if err != nil {
		return userError(err)
	}
	p, err := pipeline.Parse(raw)
	if err != nil {
		return userError(err)
	}

	svc := core.NewService(transform.NewCatalogue(), cfg.Transform)
	defer svc.Close()

	res, err := svc.Run(cmd.Context(), ds, p)
	if err != nil {
		return userError(err)
	}
	return writeOutput(cmd, opts, res)
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func writeOutput(cmd *cobra.Command, opts runOptions, res *core.Result) (err error) {
	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, ferr := os.Create(opts.output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	if opts.format == "csv" {
		return core.EncodeCSV(out, res.Dataset)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(core.NewRecords(res.Dataset))
}

// userError replaces err with its mapped message, keeping err for errors.Is.
// Unmapped errors pass through unchanged.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return &cliError{msg: core.FormatUserError(err), err: err}
}

type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.err }
