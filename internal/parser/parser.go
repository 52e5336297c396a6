package parser

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"

	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// DefaultMaxSize is the input size limit used when none is configured.
const DefaultMaxSize = 64 << 20

// Options configures how input documents are read and parsed.
type Options struct {
	Duplicates    jsonv.DuplicatePolicy
	MaxDepth      int
	MaxSize       int64 // bytes; zero means DefaultMaxSize
	AllowComments bool  // strip comments and trailing commas before parsing
}

// Parser reads JSON documents through a jsonv grammar.
type Parser struct {
	opts    Options
	grammar *jsonv.Grammar
}

// New creates a Parser.
func New(opts Options) *Parser {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	return &Parser{
		opts:    opts,
		grammar: jsonv.NewGrammar(jsonv.Options{Duplicates: opts.Duplicates, MaxDepth: opts.MaxDepth}),
	}
}

// Read reads all of r, enforcing the size limit. name identifies the input
// in errors.
func (p *Parser) Read(name string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.opts.MaxSize+1))
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to read %s", name), err)
	}
	if int64(len(data)) > p.opts.MaxSize {
		return nil, errors.NewInputError(
			fmt.Sprintf("%s is larger than %s", name, humanize.IBytes(uint64(p.opts.MaxSize))),
			errors.ErrInputTooLarge,
		)
	}
	return data, nil
}

// ParseValue parses one JSON document. Comments are accepted when the
// parser allows them or name ends in .jsonc.
func (p *Parser) ParseValue(name string, data []byte) (jsonv.Value, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.NewInputError(fmt.Sprintf("%s is empty", name), errors.ErrEmptyInput)
	}
	if p.opts.AllowComments || filepath.Ext(name) == ".jsonc" {
		data = jsonc.ToJSON(data)
	}
	v, err := p.grammar.ParseBytes(data).Get()
	if err != nil {
		var failure *parsec.Failure
		if stderrors.As(err, &failure) {
			return nil, errors.FromFailure(name, failure)
		}
		return nil, errors.NewParsingError("failed to decode JSON", err)
	}
	return v, nil
}

// Parse reads and parses a document into an IntermediateRepresentation.
func (p *Parser) Parse(name string, r io.Reader) (models.IntermediateRepresentation, error) {
	data, err := p.Read(name, r)
	if err != nil {
		return models.IntermediateRepresentation{}, err
	}
	return p.parse(name, data)
}

func (p *Parser) parse(name string, data []byte) (models.IntermediateRepresentation, error) {
	root, err := p.ParseValue(name, data)
	if err != nil {
		return models.IntermediateRepresentation{}, err
	}
	return models.IntermediateRepresentation{
		Root:        root,
		RootIsArray: root.Kind() == jsonv.KindArray,
	}, nil
}

// ParseString parses JSON from a string
func (p *Parser) ParseString(jsonString string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return p.Parse("input", strings.NewReader(jsonString))
}

// ReadFile reads a file, enforcing the size limit.
func (p *Parser) ReadFile(filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", filePath), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError(fmt.Sprintf("failed to open file '%s'", filePath), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to get file stats for '%s'", filePath), err)
	}
	if stat.Size() == 0 {
		return nil, errors.NewInputError(fmt.Sprintf("input file '%s' is empty", filePath), errors.ErrFileEmpty)
	}
	return p.Read(filePath, file)
}

// ParseFile parses JSON from a file path
func (p *Parser) ParseFile(filePath string) (models.IntermediateRepresentation, error) {
	data, err := p.ReadFile(filePath)
	if err != nil {
		return models.IntermediateRepresentation{}, err
	}
	return p.parse(filePath, data)
}

var defaultParser = New(Options{})

// Parse converts JSON data from an io.Reader into an IntermediateRepresentation
// using the default options.
func Parse(reader io.Reader) (models.IntermediateRepresentation, error) {
	return defaultParser.Parse("input", reader)
}

// ParseString parses JSON from a string using the default options.
func ParseString(jsonString string) (models.IntermediateRepresentation, error) {
	return defaultParser.ParseString(jsonString)
}

// ParseFile parses JSON from a file path using the default options.
func ParseFile(filePath string) (models.IntermediateRepresentation, error) {
	return defaultParser.ParseFile(filePath)
}
