package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sorbe "github.com/minty1202/sorbe-tpl"
	"github.com/minty1202/sorbe-tpl/internal/gen"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by all subcommands.
type app struct {
	out    io.Writer
	logger *slog.Logger
	debug  bool
	schema string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:           "sorbe",
		Short:         "Parse, validate and convert sorbe configuration documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(errOut, a.debug)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(
		a.checkCmd(),
		a.dumpCmd(),
		a.fingerprintCmd(),
		a.jsonSchemaCmd(),
		a.genCmd(),
	)

	return rootCmd
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check CONFIG",
		Short: "Check that a document parses and, with --schema, conforms to a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadConfig(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("document ok", "file", args[0], "keys", d.Len())
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.schema, "schema", "s", "", "Schema document to validate against")

	return cmd
}

func (a *app) dumpCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump CONFIG",
		Short: "Print a document as JSON, YAML or normalized sorbe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadConfig(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("dumping document", "file", args[0], "format", format)
			return dump(a.out, d, format)
		},
	}
	cmd.Flags().StringVarP(&a.schema, "schema", "s", "", "Schema document to validate against")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml or sorbe")

	return cmd
}

func (a *app) fingerprintCmd() *cobra.Command {
	var isSchema bool

	cmd := &cobra.Command{
		Use:   "fingerprint FILE",
		Short: "Print an order-independent digest of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sum string
				err error
			)
			if isSchema {
				var s *sorbe.SchemaDict
				if s, err = a.loadSchema(args[0]); err != nil {
					return err
				}
				sum, err = sorbe.SchemaFingerprint(s)
			} else {
				var d *sorbe.Dict
				if d, err = a.loadConfig(args[0]); err != nil {
					return err
				}
				sum, err = sorbe.Fingerprint(d)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, sum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.schema, "schema", "s", "", "Schema document to validate against")
	cmd.Flags().BoolVar(&isSchema, "of-schema", false, "Treat FILE as a schema document")

	return cmd
}

func (a *app) jsonSchemaCmd() *cobra.Command {
	var validate string

	cmd := &cobra.Command{
		Use:   "jsonschema SCHEMA",
		Short: "Print the JSON Schema of a schema document",
		Long: "Print the JSON Schema of a schema document. With --validate, check a JSON\n" +
			"document against it instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(args[0])
			if err != nil {
				return err
			}

			if validate == "" {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(s.JSONSchema())
			}

			compiled, err := sorbe.CompileJSONSchema(s)
			if err != nil {
				return err
			}
			data, err := readInput(validate)
			if err != nil {
				return err
			}

			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			var doc any
			if err := dec.Decode(&doc); err != nil {
				return fmt.Errorf("%s: %w", validate, err)
			}
			if err := compiled.Validate(doc); err != nil {
				return err
			}

			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&validate, "validate", "", "JSON document to validate")

	return cmd
}

func (a *app) genCmd() *cobra.Command {
	var pkg, typeName string

	cmd := &cobra.Command{
		Use:   "gen SCHEMA",
		Short: "Generate Go struct declarations from a schema document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema(args[0])
			if err != nil {
				return err
			}

			fields := gen.FromSchema(s)
			a.logger.Debug("generating structs", "fields", len(fields), "package", pkg, "type", typeName)

			src, err := gen.Generate(fields, pkg, typeName)
			if err != nil {
				return err
			}
			_, err = a.out.Write(src)
			return err
		},
	}
	cmd.Flags().StringVarP(&pkg, "package", "p", "config", "Package name of the generated file")
	cmd.Flags().StringVarP(&typeName, "type", "t", "Config", "Name of the top-level struct")

	return cmd
}

// loadConfig parses the configuration at path, validating it against the
// --schema document when one is given.
func (a *app) loadConfig(path string) (*sorbe.Dict, error) {
	text, err := readInput(path)
	if err != nil {
		return nil, err
	}

	if a.schema == "" {
		d, err := sorbe.ParseConfig(string(text))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}

	s, err := a.loadSchema(a.schema)
	if err != nil {
		return nil, err
	}
	d, err := sorbe.ParseConfig(string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("validating", "file", path, "schema", a.schema)

	if d, err = sorbe.Conform(d, s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (a *app) loadSchema(path string) (*sorbe.SchemaDict, error) {
	text, err := readInput(path)
	if err != nil {
		return nil, err
	}

	s, err := sorbe.ParseSchema(string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("schema loaded", "file", path, "keys", s.Len())

	return s, nil
}

// readInput reads a file, or standard input when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file %s: %w", path, err)
	}
	return data, nil
}
