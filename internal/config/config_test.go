package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serdegen.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "main", cfg.Package)
	assert.Equal(t, "Root", cfg.RootName)
	assert.True(t, cfg.Formatting.Enabled)
	assert.False(t, cfg.Types.ForceInt64)
	assert.True(t, cfg.Types.OptionalAsPointers)
	assert.True(t, cfg.Naming.PascalCaseFields)
	assert.Equal(t, models.AbsentOmit, cfg.Codecs.Absent)
	assert.Equal(t, models.UnknownSkip, cfg.Codecs.Unknown)
	assert.Equal(t, jsonv.LastWins, cfg.DuplicatePolicy())
	assert.Equal(t, 512, cfg.Codecs.MaxDepth)
	require.NoError(t, cfg.Validate())

	size, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64<<20), size)
}

func TestConfig_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
package: "catalog"
root_name: "Listing"
types:
  force_int64: true
  optional_as_pointers: false
  mappings:
    - pattern: "(^|_)price$"
      type: "decimal"
      comment: "money"
naming:
  pascal_case_fields: false
  field_mappings:
    "sku_id": "SKU"
codecs:
  absent: "null"
  unknown: reject
  duplicates: reject
  max_depth: 64
  json_methods: true
input:
  allow_comments: true
  max_size: "1 MiB"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "catalog", cfg.Package)
	assert.Equal(t, "Listing", cfg.RootName)
	assert.True(t, cfg.Types.ForceInt64)
	assert.False(t, cfg.Types.OptionalAsPointers)
	assert.False(t, cfg.Naming.PascalCaseFields)
	assert.Equal(t, "SKU", cfg.Naming.FieldMappings["sku_id"])
	assert.Equal(t, models.AbsentNull, cfg.Codecs.Absent)
	assert.Equal(t, models.UnknownReject, cfg.Codecs.Unknown)
	assert.Equal(t, jsonv.Reject, cfg.DuplicatePolicy())
	assert.True(t, cfg.Codecs.JSONMethods)

	opts := cfg.ParserOptions()
	assert.Equal(t, int64(1<<20), opts.MaxSize)
	assert.Equal(t, 64, opts.MaxDepth)
	assert.True(t, opts.AllowComments)
	assert.Equal(t, jsonv.Reject, opts.Duplicates)

	require.Len(t, cfg.Types.Mappings, 1)
	mapping := cfg.Types.Mappings[0]
	ref, err := mapping.TypeRef()
	require.NoError(t, err)
	assert.Equal(t, models.KindDecimal, ref.Kind)
	assert.Equal(t, "money", mapping.Comment)
}

func TestConfig_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "package: \"models\"\ninvalid_yaml: [unclosed array\n", "failed to parse config file"},
		{"bad pattern", "types:\n  mappings:\n    - pattern: \"[oops\"\n      type: int64\n", "invalid type mapping pattern"},
		{"bad mapping type", "types:\n  mappings:\n    - pattern: id\n      type: \"map[int]string\"\n", "invalid type 'map[int]string'"},
		{"bad absent", "codecs:\n  absent: drop\n", `invalid absent policy "drop"`},
		{"bad unknown", "codecs:\n  unknown: warn\n", `invalid unknown-field policy "warn"`},
		{"bad duplicates", "codecs:\n  duplicates: merge\n", `unknown duplicate key policy "merge"`},
		{"bad depth", "codecs:\n  max_depth: 0\n", "max_depth must be positive"},
		{"bad size", "input:\n  max_size: lots\n", `invalid max_size "lots"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_LoadNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_FindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "project", "subdir")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	configPath := filepath.Join(tmpDir, "project", ".serdegen.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`package: "found"`), 0o644))

	t.Chdir(nestedDir)

	foundPath := FindConfigFile()
	require.NotEmpty(t, foundPath, "Should find config file")

	foundContent, err := os.ReadFile(foundPath)
	require.NoError(t, err)
	assert.Contains(t, string(foundContent), `package: "found"`)
}

func TestConfig_FindConfigFileNotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Empty(t, FindConfigFile())
}

func TestTypeMapping_MatchesPattern(t *testing.T) {
	mapping := TypeMapping{Pattern: ".*_id$", Type: "int64"}

	assert.True(t, mapping.MatchesField("user_id"))
	assert.True(t, mapping.MatchesField("product_id"))
	assert.False(t, mapping.MatchesField("username"))
	assert.False(t, mapping.MatchesField("id_number"))

	ref, err := mapping.TypeRef()
	require.NoError(t, err)
	assert.Equal(t, "int64", ref.GoType())
}

func TestTypeMapping_InvalidPattern(t *testing.T) {
	mapping := TypeMapping{Pattern: "[invalid regex", Type: "int64"}
	assert.False(t, mapping.MatchesField("user_id"))
}

func TestConfig_GetFieldName(t *testing.T) {
	cfg := NewConfig()
	cfg.Naming.FieldMappings["sku_id"] = "SKU"

	assert.Equal(t, "UserName", cfg.GetFieldName("user_name"))
	assert.Equal(t, "CreatedAt", cfg.GetFieldName("createdAt"))
	assert.Equal(t, "SKU", cfg.GetFieldName("sku_id"))

	cfg.Naming.PascalCaseFields = false
	assert.Equal(t, "user_name", cfg.GetFieldName("user_name"))
}

func TestConfig_FindTypeMapping(t *testing.T) {
	cfg := NewConfig()
	cfg.Types.Mappings = []TypeMapping{
		{Pattern: "_at$", Type: "time"},
		{Pattern: "price", Type: "decimal"},
	}
	require.NoError(t, cfg.Validate())

	m, ok := cfg.FindTypeMapping("created_at")
	require.True(t, ok)
	assert.Equal(t, "time", m.Type)

	m, ok = cfg.FindTypeMapping("unit_price")
	require.True(t, ok)
	assert.Equal(t, "decimal", m.Type)

	_, ok = cfg.FindTypeMapping("name")
	assert.False(t, ok)
}

func TestLoadConfigWithCLI(t *testing.T) {
	path := writeConfig(t, `
package: "models"
root_name: "Response"
formatting:
  enabled: false
codecs:
  unknown: reject
`)

	cfg, err := LoadConfigWithCLI(path, CLIOverrides{
		Package:    "api",
		ForceInt64: true,
		Absent:     "null",
		MaxDepth:   32,
		MaxSize:    "2KiB",
		Debug:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Package)
	assert.Equal(t, "Response", cfg.RootName)
	assert.True(t, cfg.Types.ForceInt64)
	assert.False(t, cfg.Formatting.Enabled)
	assert.Equal(t, models.AbsentNull, cfg.Codecs.Absent)
	assert.Equal(t, models.UnknownReject, cfg.Codecs.Unknown)
	assert.Equal(t, 32, cfg.Codecs.MaxDepth)
	assert.True(t, cfg.Dev.Debug)

	size, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)
}

func TestLoadConfigWithCLI_ClampsMaxDepth(t *testing.T) {
	cfg, err := LoadConfigWithCLI("", CLIOverrides{MaxDepth: 10000000})
	require.NoError(t, err)
	assert.Equal(t, parsec.MaxDepthLimit, cfg.Codecs.MaxDepth)
	assert.Equal(t, parsec.MaxDepthLimit, cfg.ParserOptions().MaxDepth)

	cfg, err = LoadConfig(writeConfig(t, "codecs:\n  max_depth: 20000\n"))
	require.NoError(t, err)
	assert.Equal(t, parsec.MaxDepthLimit, cfg.Codecs.MaxDepth)
}

func TestLoadConfigWithCLI_NoFile(t *testing.T) {
	cfg, err := LoadConfigWithCLI("", CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)

	_, err = LoadConfigWithCLI("", CLIOverrides{Unknown: "ignore"})
	assert.Error(t, err)
}
