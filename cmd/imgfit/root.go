package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/harliandi/go-imgfit/internal/config"
	"github.com/harliandi/go-imgfit/internal/converter"
	"github.com/harliandi/go-imgfit/internal/logctx"
	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/optimizer"
	"github.com/spf13/cobra"
)

const (
	outputBinary = "binary"
	outputBase64 = "base64"
	outputURI    = "uri"
)

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "imgfit [input|-]",
		Short: "Re-encode an image to fit a byte or base64 size ceiling",
		Long: `imgfit re-encodes an image as JPEG or WebP at the highest quality that
fits the given ceilings, falling back to smaller resolutions when needed.
Input is read from the named file or from stdin when it is "-" or absent.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, cfg, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.Int("max-bytes", 0, "Maximum encoded size in bytes")
	f.Int("max-base64", 0, "Maximum base64 length in characters")
	f.String("format", cfg.DefaultFormat, "Output format (jpeg, webp)")
	f.Int("max-size", 0, "Longest side in pixels; disables resolution tiers")
	f.Int("quality", cfg.InitialQuality, "Initial (highest) quality to try")
	f.Int("min-quality", cfg.MinQuality, "Lowest acceptable quality")
	f.String("output-mode", outputBinary, "Output encoding (binary, base64, uri)")
	f.StringP("output", "o", "", "Output file (default stdout)")
	f.BoolP("verbose", "v", false, "Log the search to stderr")

	return cmd
}

func run(cmd *cobra.Command, args []string, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := cmd.Flags()

	req, err := buildRequest(cmd, cfg)
	if err != nil {
		return usageError{err}
	}
	mode, _ := flags.GetString("output-mode")
	switch mode {
	case outputBinary, outputBase64, outputURI:
	default:
		return usageError{fmt.Errorf("output-mode must be binary, base64 or uri, got %q", mode)}
	}

	data, err := readInput(args, stdin)
	if err != nil {
		return err
	}

	level := slog.LevelError
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	ctx := logctx.With(context.Background(), logger)

	rs, err := codec.NewResizer(cfg.ResizeFilter)
	if err != nil {
		return err
	}
	conv := converter.New(optimizer.New(codec.NewEncoder(), rs, optimizer.WithPolicy(cfg.Policy())))

	res, err := conv.Optimize(ctx, data, req)
	if err != nil {
		return err
	}

	var out []byte
	switch mode {
	case outputBase64:
		out = []byte(res.Base64())
	case outputURI:
		out = []byte(res.DataURI())
	default:
		out = res.Data
	}

	if path, _ := flags.GetString("output"); path != "" && path != "-" {
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else if _, err := stdout.Write(out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// buildRequest reads the optimization flags. A ceiling flag counts as
// present only when it was set on the command line.
func buildRequest(cmd *cobra.Command, cfg *config.Config) (optimizer.Request, error) {
	flags := cmd.Flags()
	var req optimizer.Request

	if flags.Changed("max-bytes") {
		n, _ := flags.GetInt("max-bytes")
		req.Constraints.MaxBinaryBytes = limits.Int(n)
	}
	if flags.Changed("max-base64") {
		n, _ := flags.GetInt("max-base64")
		req.Constraints.MaxBase64Chars = limits.Int(n)
	}
	if req.Constraints.MaxBinaryBytes == nil && req.Constraints.MaxBase64Chars == nil {
		req.Constraints = cfg.DefaultConstraints()
	}

	format, _ := flags.GetString("format")
	f, err := codec.ParseFormat(format)
	if err != nil {
		return req, err
	}
	req.Format = f

	req.MaxSize, _ = flags.GetInt("max-size")
	if req.MaxSize < 0 {
		return req, fmt.Errorf("max-size must not be negative")
	}
	req.InitialQuality, _ = flags.GetInt("quality")
	req.MinQuality, _ = flags.GetInt("min-quality")
	return req, nil
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, codec.MaxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}
