package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcncl/serdegen/internal/analyzer"
	"github.com/mcncl/serdegen/internal/config"
	"github.com/mcncl/serdegen/internal/descriptor"
	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/formatter"
	"github.com/mcncl/serdegen/internal/generator"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/internal/parser"
	"github.com/mcncl/serdegen/internal/schema"
	"github.com/mcncl/serdegen/jsonv"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config      string `help:"Path to a config file. Defaults to the nearest .serdegen.yml above the working directory." short:"c" type:"path"`
	Debug       bool   `help:"Enable debug logging." short:"d"`
	Package     string `help:"Package name for generated code." short:"p"`
	RootName    string `help:"Name for the root type." short:"r"`
	ForceInt64  bool   `help:"Use int64 for every inferred integer." name:"force-int64"`
	Absent      string `help:"Absent field policy for generated codecs: omit or null."`
	Unknown     string `help:"Unknown field policy for generated codecs: skip or reject."`
	Duplicates  string `help:"Duplicate key policy when reading input: last-wins, first-wins or reject."`
	MaxDepth    int    `help:"Maximum nesting depth of input documents, at most 10000."`
	MaxInput    string `help:"Largest input accepted, e.g. 64MiB." name:"max-input"`
	Comments    bool   `help:"Accept comments and trailing commas in JSON input."`
	NoFormat    bool   `help:"Skip gofmt on generated code."`
	JSONMethods bool   `help:"Also generate MarshalJSON and UnmarshalJSON methods." name:"json-methods"`

	Gen     GenCmd     `cmd:"" help:"Generate codecs from a descriptor file."`
	Infer   InferCmd   `cmd:"" help:"Infer types from a sample JSON document and generate codecs."`
	Schema  SchemaCmd  `cmd:"" help:"Generate codecs from a JSON Schema."`
	Fmt     FmtCmd     `cmd:"" help:"Re-serialize a JSON document."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// GenCmd generates code from a descriptor file.
type GenCmd struct {
	Descriptors string `arg:"" help:"Descriptor file (.yml, .yaml, .json or .jsonc)." type:"path"`
	Output      string `help:"Path to output Go file. If not specified, writes to stdout." short:"o" type:"path"`
}

// InferCmd generates code from a sample document.
type InferCmd struct {
	Input  string `arg:"" optional:"" help:"Sample JSON file. Reads stdin when omitted or '-'."`
	Output string `help:"Path to output Go file. If not specified, writes to stdout." short:"o" type:"path"`
}

// SchemaCmd generates code from a JSON Schema document.
type SchemaCmd struct {
	Input  string `arg:"" optional:"" help:"JSON Schema file. Reads stdin when omitted or '-'."`
	Output string `help:"Path to output Go file. If not specified, writes to stdout." short:"o" type:"path"`
}

// FmtCmd re-serializes JSON.
type FmtCmd struct {
	Input   string `arg:"" optional:"" help:"JSON file. Reads stdin when omitted or '-'."`
	Output  string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Indent  string `help:"Indentation per level." default:"  "`
	Compact bool   `help:"Write compact output."`
}

// VersionCmd prints the version.
type VersionCmd struct{}

// app holds what every command needs at run time.
type app struct {
	cli    *CLI
	config *config.Config
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: serdegen --help\n")
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("serdegen"),
		kong.Description("Generate reflection-free JSON codecs for Go types"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewInputError("invalid arguments", err)
	}

	a, err := newApp(&cli, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	return ctx.Run(a)
}

func newApp(cli *CLI, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	path := cli.Config
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(path, config.CLIOverrides{
		Package:    cli.Package,
		RootName:   cli.RootName,
		ForceInt64: cli.ForceInt64,
		Absent:     cli.Absent,
		Unknown:    cli.Unknown,
		Duplicates: cli.Duplicates,
		MaxDepth:   cli.MaxDepth,
		MaxSize:    cli.MaxInput,
		Comments:   cli.Comments,
		Debug:      cli.Debug,
	})
	if err != nil {
		return nil, errors.NewInputError("failed to load configuration", err)
	}
	if cli.NoFormat {
		cfg.Formatting.Enabled = false
	}
	if cli.JSONMethods {
		cfg.Codecs.JSONMethods = true
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Dev.Debug {
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if path != "" {
		logger.Debug("loaded configuration", zap.String("path", path))
	}

	return &app{
		cli:    cli,
		config: cfg,
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Run loads the descriptors and generates their codecs.
func (c *GenCmd) Run(a *app) error {
	set, err := descriptor.Load(c.Descriptors, descriptor.Defaults{
		Package: a.config.Package,
		Absent:  a.config.Codecs.Absent,
		Unknown: a.config.Codecs.Unknown,
	})
	if err != nil {
		return err
	}
	// An explicit --package wins over the file.
	if a.cli.Package != "" {
		set.Package = a.cli.Package
	}
	return a.emit(set, c.Output)
}

// Run infers types from a sample document and generates their codecs.
func (c *InferCmd) Run(a *app) error {
	p := parser.New(a.config.ParserOptions())

	var (
		ir  models.IntermediateRepresentation
		err error
	)
	if isStdin(c.Input) {
		if err := a.checkStdin(); err != nil {
			return err
		}
		ir, err = p.Parse("stdin", a.stdin)
	} else {
		ir, err = p.ParseFile(c.Input)
	}
	if err != nil {
		return err
	}

	set, err := analyzer.NewAnalyzerWithConfig(a.config, a.logger).Analyze(ir, a.config.RootName)
	if err != nil {
		return err
	}
	return a.emit(set, c.Output)
}

// Run converts a JSON Schema into descriptors and generates their codecs.
func (c *SchemaCmd) Run(a *app) error {
	var (
		doc *schema.Schema
		err error
	)
	if isStdin(c.Input) {
		data, readErr := a.readStdin()
		if readErr != nil {
			return readErr
		}
		doc, err = schema.ParseBytes(data)
	} else {
		doc, err = schema.ParseFile(c.Input)
	}
	if err != nil {
		return err
	}

	// The schema title names the root unless --root-name is given.
	set, err := schema.NewConverter(doc, a.config, a.logger).Convert(a.cli.RootName)
	if err != nil {
		return err
	}
	return a.emit(set, c.Output)
}

// Run parses a document and writes it back out.
func (c *FmtCmd) Run(a *app) error {
	p := parser.New(a.config.ParserOptions())

	name := c.Input
	var (
		data []byte
		err  error
	)
	if isStdin(c.Input) {
		name = "stdin"
		data, err = a.readStdin()
	} else {
		data, err = p.ReadFile(c.Input)
	}
	if err != nil {
		return err
	}

	v, err := p.ParseValue(name, data)
	if err != nil {
		return err
	}
	var out string
	if c.Compact {
		out = jsonv.Write(v)
	} else {
		out = jsonv.WriteIndent(v, c.Indent)
	}
	a.logger.Debug("formatted document",
		zap.String("input", name),
		zap.String("read", humanize.Bytes(uint64(len(data)))),
		zap.String("written", humanize.Bytes(uint64(len(out)+1))))
	return a.writeOutput(out+"\n", c.Output)
}

// Run prints the version.
func (c *VersionCmd) Run(a *app) error {
	_, err := fmt.Fprintf(a.stdout, "serdegen version %s\n", Version)
	return err
}

// emit generates, formats and writes the code for set.
func (a *app) emit(set models.DescriptorSet, output string) error {
	code, err := generator.NewGeneratorWithConfig(a.config, a.logger).Generate(set)
	if err != nil {
		return err
	}
	if a.config.Formatting.Enabled {
		code, err = formatter.NewFormatter().Format(code)
		if err != nil {
			return err
		}
	}
	a.logger.Debug("generated package",
		zap.String("package", set.Package),
		zap.Int("types", len(set.Types)),
		zap.String("size", humanize.Bytes(uint64(len(code)))))
	return a.writeOutput(code, output)
}

func isStdin(path string) bool {
	return path == "" || path == "-"
}

// checkStdin rejects an interactive terminal on stdin.
func (a *app) checkStdin() error {
	f, ok := a.stdin.(*os.File)
	if !ok {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return errors.NewInputError("failed to access stdin", err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return errors.NewInputError("no input provided", errors.ErrNoInput)
	}
	return nil
}

func (a *app) readStdin() ([]byte, error) {
	if err := a.checkStdin(); err != nil {
		return nil, err
	}
	return parser.New(a.config.ParserOptions()).Read("stdin", a.stdin)
}

// writeOutput writes text to path, or to stdout when path is empty.
func (a *app) writeOutput(text, path string) error {
	if path != "" {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(a.stderr, "Wrote %s to %s\n", humanize.Bytes(uint64(len(text))), path)
		return nil
	}

	if _, err := io.WriteString(a.stdout, text); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
