package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wasmbridge/internal/config"
	"github.com/roach88/wasmbridge/internal/hostfs"
	"github.com/roach88/wasmbridge/internal/payload"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	ConfigPath string
	Format     string
	Schema     string
}

// DecodeResult is the decoded payload of one file.
type DecodeResult struct {
	File    string          `json:"file"`
	Payload payload.Example `json:"payload"`
	Digest  string          `json:"digest"`
}

func (r DecodeResult) String() string {
	return fmt.Sprintf("%s: %v\ndigest: %s", r.File, r.Payload, r.Digest)
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode one file the way an upload would be",
		Long: `Read and decode a single file with the configured payload format.

Prints the decoded payload and its digest. A file with the wrong shape
exits with code 1; an unreadable file or bad configuration with code 2.

Example:
  wasmbridge decode ./payload.json
  wasmbridge decode --payload-format cue --schema ./example.cue ./payload.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Format, "payload-format", "", "payload text format (json|yaml|cue)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file for --payload-format cue")

	return cmd
}

func runDecode(cmd *cobra.Command, opts *DecodeOptions, path string) error {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	if cmd.Flags().Changed("payload-format") {
		cfg.Format = opts.Format
	}
	if cmd.Flags().Changed("schema") {
		cfg.Schema = opts.Schema
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	dec, err := config.Decoder[payload.Example](cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build decoder", err)
	}

	// Same read path as an upload from the run command.
	file := hostfs.NewInput(path).Files()[0]
	text, err := file.Text(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read file", err)
	}

	out := opts.formatter(cmd)
	out.VerboseLog("decoding %s as %s", file.Name(), dec.Format())
	value, err := dec.Decode(text)
	if err != nil {
		out.Error("DECODE_FAILURE", "provided file does not have right shape", err.Error())
		return WrapExitError(ExitFailure, "provided file does not have right shape", err)
	}

	digest, err := payload.Digest(value)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest payload", err)
	}

	return out.Success(DecodeResult{File: file.Name(), Payload: value, Digest: digest})
}
