package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/internal/parser"
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// Config represents the complete configuration for serdegen
type Config struct {
	Package    string           `yaml:"package"`
	RootName   string           `yaml:"root_name"`
	Formatting FormattingConfig `yaml:"formatting"`
	Types      TypesConfig      `yaml:"types"`
	Naming     NamingConfig     `yaml:"naming"`
	Codecs     CodecsConfig     `yaml:"codecs"`
	Input      InputConfig      `yaml:"input"`
	Arrays     ArraysConfig     `yaml:"arrays"`
	Output     OutputConfig     `yaml:"output"`
	Dev        DevConfig        `yaml:"dev"`
}

// FormattingConfig controls code formatting options
type FormattingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TypesConfig controls type inference and mapping
type TypesConfig struct {
	ForceInt64         bool          `yaml:"force_int64"`
	OptionalAsPointers bool          `yaml:"optional_as_pointers"`
	DetectTime         bool          `yaml:"detect_time"`
	Mappings           []TypeMapping `yaml:"mappings"`
}

// TypeMapping forces the type of inferred fields whose JSON key matches
// Pattern. Type uses descriptor syntax, e.g. "decimal" or "[]int64".
type TypeMapping struct {
	Pattern string `yaml:"pattern"`
	Type    string `yaml:"type"`
	Comment string `yaml:"comment,omitempty"`

	// compiled forms (not serialized)
	regex *regexp.Regexp
	ref   models.TypeRef
}

// NamingConfig controls field and struct naming
type NamingConfig struct {
	PascalCaseFields bool              `yaml:"pascal_case_fields"`
	FieldMappings    map[string]string `yaml:"field_mappings"`
}

// CodecsConfig holds the defaults of generated codecs and the JSON grammar
// used to read inputs.
type CodecsConfig struct {
	Absent      models.AbsentPolicy  `yaml:"absent"`
	Unknown     models.UnknownPolicy `yaml:"unknown"`
	Duplicates  string               `yaml:"duplicates"`
	MaxDepth    int                  `yaml:"max_depth"` // clamped to parsec.MaxDepthLimit
	JSONMethods bool                 `yaml:"json_methods"`
}

// InputConfig controls how input documents are read
type InputConfig struct {
	AllowComments bool   `yaml:"allow_comments"`
	MaxSize       string `yaml:"max_size"` // e.g. "64MiB"
}

// ArraysConfig controls array handling
type ArraysConfig struct {
	MergeDifferentObjects bool `yaml:"merge_different_objects"`
	SingularizeNames      bool `yaml:"singularize_names"`
}

// OutputConfig controls output generation options
type OutputConfig struct {
	FileHeader string `yaml:"file_header"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Package:  "main",
		RootName: "Root",
		Formatting: FormattingConfig{
			Enabled: true,
		},
		Types: TypesConfig{
			OptionalAsPointers: true,
			DetectTime:         true,
			Mappings:           []TypeMapping{},
		},
		Naming: NamingConfig{
			PascalCaseFields: true,
			FieldMappings:    make(map[string]string),
		},
		Codecs: CodecsConfig{
			Absent:     models.AbsentOmit,
			Unknown:    models.UnknownSkip,
			Duplicates: jsonv.LastWins.String(),
			MaxDepth:   512,
		},
		Input: InputConfig{
			MaxSize: "64MiB",
		},
		Arrays: ArraysConfig{
			MergeDifferentObjects: true,
			SingularizeNames:      true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".serdegen.yml", ".serdegen.yaml", "serdegen.yml", "serdegen.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks policy names and limits and compiles the type mappings.
func (c *Config) Validate() error {
	if err := c.compilePatterns(); err != nil {
		return fmt.Errorf("failed to compile patterns: %w", err)
	}
	if !c.Codecs.Absent.Valid() {
		return fmt.Errorf("invalid absent policy %q: want omit or null", c.Codecs.Absent)
	}
	if !c.Codecs.Unknown.Valid() {
		return fmt.Errorf("invalid unknown-field policy %q: want skip or reject", c.Codecs.Unknown)
	}
	if _, err := jsonv.ParseDuplicatePolicy(c.Codecs.Duplicates); err != nil {
		return err
	}
	if c.Codecs.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.Codecs.MaxDepth)
	}
	c.Codecs.MaxDepth = min(c.Codecs.MaxDepth, parsec.MaxDepthLimit)
	if _, err := c.MaxInputBytes(); err != nil {
		return err
	}
	return nil
}

// compilePatterns compiles the type mapping patterns and types
func (c *Config) compilePatterns() error {
	for i := range c.Types.Mappings {
		mapping := &c.Types.Mappings[i]
		regex, err := regexp.Compile(mapping.Pattern)
		if err != nil {
			return fmt.Errorf("invalid type mapping pattern '%s': %w", mapping.Pattern, err)
		}
		ref, err := models.ParseTypeRef(mapping.Type)
		if err != nil {
			return fmt.Errorf("invalid type '%s' for pattern '%s': %w", mapping.Type, mapping.Pattern, err)
		}
		mapping.regex = regex
		mapping.ref = ref
	}
	return nil
}

// MatchesField checks if this type mapping matches the given JSON key
func (tm *TypeMapping) MatchesField(fieldName string) bool {
	if tm.regex == nil {
		regex, err := regexp.Compile(tm.Pattern)
		if err != nil {
			return false
		}
		tm.regex = regex
	}
	return tm.regex.MatchString(fieldName)
}

// TypeRef returns the parsed mapping type.
func (tm *TypeMapping) TypeRef() (models.TypeRef, error) {
	if tm.ref.Name == "" && tm.ref.Elem == nil {
		ref, err := models.ParseTypeRef(tm.Type)
		if err != nil {
			return models.TypeRef{}, err
		}
		tm.ref = ref
	}
	return tm.ref, nil
}

// GetFieldName returns the Go field name for a JSON key, applying naming rules
func (c *Config) GetFieldName(jsonKey string) string {
	if mapped, exists := c.Naming.FieldMappings[jsonKey]; exists {
		return mapped
	}

	if c.Naming.PascalCaseFields {
		return strcase.ToCamel(jsonKey)
	}

	return jsonKey
}

// FindTypeMapping finds the first type mapping that matches the JSON key
func (c *Config) FindTypeMapping(fieldName string) (TypeMapping, bool) {
	for _, mapping := range c.Types.Mappings {
		if mapping.MatchesField(fieldName) {
			return mapping, true
		}
	}
	return TypeMapping{}, false
}

// DuplicatePolicy returns the configured duplicate-key policy. It falls back
// to last-wins when the name is invalid; Validate reports that case.
func (c *Config) DuplicatePolicy() jsonv.DuplicatePolicy {
	p, err := jsonv.ParseDuplicatePolicy(c.Codecs.Duplicates)
	if err != nil {
		return jsonv.LastWins
	}
	return p
}

// MaxInputBytes parses Input.MaxSize. An empty size means the parser
// default.
func (c *Config) MaxInputBytes() (int64, error) {
	if c.Input.MaxSize == "" {
		return parser.DefaultMaxSize, nil
	}
	n, err := humanize.ParseBytes(c.Input.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_size %q: %w", c.Input.MaxSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("max_size must be positive")
	}
	return int64(n), nil
}

// ParserOptions returns the options for reading input documents.
func (c *Config) ParserOptions() parser.Options {
	maxSize, err := c.MaxInputBytes()
	if err != nil {
		maxSize = parser.DefaultMaxSize
	}
	return parser.Options{
		Duplicates:    c.DuplicatePolicy(),
		MaxDepth:      c.Codecs.MaxDepth,
		MaxSize:       maxSize,
		AllowComments: c.Input.AllowComments,
	}
}

// CLIOverrides holds flag values that take precedence over the config file.
// Zero values mean the flag was not given.
type CLIOverrides struct {
	Package    string
	RootName   string
	ForceInt64 bool
	Absent     string
	Unknown    string
	Duplicates string
	MaxDepth   int
	MaxSize    string
	Comments   bool
	Debug      bool
}

// LoadConfigWithCLI loads config with CLI argument precedence
func LoadConfigWithCLI(configPath string, cli CLIOverrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if cli.Package != "" {
		cfg.Package = cli.Package
	}
	if cli.RootName != "" {
		cfg.RootName = cli.RootName
	}
	if cli.ForceInt64 {
		cfg.Types.ForceInt64 = true
	}
	if cli.Absent != "" {
		cfg.Codecs.Absent = models.AbsentPolicy(cli.Absent)
	}
	if cli.Unknown != "" {
		cfg.Codecs.Unknown = models.UnknownPolicy(cli.Unknown)
	}
	if cli.Duplicates != "" {
		cfg.Codecs.Duplicates = cli.Duplicates
	}
	if cli.MaxDepth > 0 {
		cfg.Codecs.MaxDepth = cli.MaxDepth
	}
	if cli.MaxSize != "" {
		cfg.Input.MaxSize = cli.MaxSize
	}
	if cli.Comments {
		cfg.Input.AllowComments = true
	}
	if cli.Debug {
		cfg.Dev.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
