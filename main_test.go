package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/serdegen/internal/errors"
)

const catalogDescriptors = `
package: catalog
types:
  - name: Product
    doc: Product is a catalog entry.
    fields:
      - {key: sku, name: SKU, type: string, required: true}
      - {key: price, type: decimal, required: true}
      - {key: tags, type: "[]string", default: '[]'}
`

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_Version(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "serdegen version "+Version+"\n", out)
}

func TestRun_Gen(t *testing.T) {
	path := writeFile(t, "catalog.yml", catalogDescriptors)

	out, _, err := runCLI(t, "", "gen", path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "// Code generated by serdegen. DO NOT EDIT.\n"))
	assert.Contains(t, out, "package catalog\n")
	assert.Contains(t, out, "\t\"github.com/shopspring/decimal\"\n")
	assert.Contains(t, out, "// Product is a catalog entry.\ntype Product struct {\n")
	assert.Contains(t, out, "\tSKU   string          `json:\"sku\"`\n")
	assert.Contains(t, out, "var ProductCodec codec.Codec[Product] = productCodec{}\n")
	assert.Contains(t, out, "v.Tags = codec.MustDecodeDefault(productTagsCodec, `[]`)")
}

func TestRun_GenToFile(t *testing.T) {
	path := writeFile(t, "catalog.yml", catalogDescriptors)
	output := filepath.Join(t.TempDir(), "catalog_gen.go")

	out, stderr, err := runCLI(t, "", "--package", "store", "gen", path, "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "to "+output)

	code, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(code), "package store\n")
}

func TestRun_GenMissingFile(t *testing.T) {
	_, _, err := runCLI(t, "", "gen", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

func TestRun_InferFromStdin(t *testing.T) {
	input := `[{"id": 1, "name": "a"}, {"id": 2, "name": null}]`

	out, _, err := runCLI(t, input, "--root-name", "item", "--package", "inventory", "infer")
	require.NoError(t, err)

	assert.Contains(t, out, "package inventory\n")
	assert.Contains(t, out, "type ItemList = []Item\n")
	assert.Contains(t, out, "var ItemListCodec = codec.Slice(ItemCodec)\n")
	assert.Contains(t, out, "\tName *string")
}

func TestRun_InferWithConfig(t *testing.T) {
	cfgPath := writeFile(t, "serdegen.yml", `
package: models
root_name: Event
codecs:
  unknown: reject
output:
  file_header: Generated from a sample.
`)
	input := writeFile(t, "event.json", `{"kind": "click", "at": "2024-01-02T03:04:05Z"}`)

	out, _, err := runCLI(t, "", "--config", cfgPath, "--no-format", "infer", input)
	require.NoError(t, err)

	assert.Contains(t, out, "// Generated from a sample.\n\npackage models\n")
	assert.Contains(t, out, "type Event struct {\n")
	assert.Contains(t, out, "\tAt time.Time `json:\"at\"`\n")
	assert.Contains(t, out, "return codec.RejectUnknown(at, key)")
}

func TestRun_InferInvalidJSON(t *testing.T) {
	_, _, err := runCLI(t, `{"id": }`, "infer")
	require.Error(t, err)

	msg := errors.UserFriendlyError(err)
	assert.Contains(t, msg, "stdin:1:")
	assert.Contains(t, msg, "^")
}

func TestRun_InferTooLarge(t *testing.T) {
	_, _, err := runCLI(t, `{"a": "`+strings.Repeat("x", 2048)+`"}`, "--max-input", "1KiB", "infer")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInputTooLarge)
}

func TestRun_Schema(t *testing.T) {
	path := writeFile(t, "user.schema.json", `{
		"title": "User",
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"email": {"type": "string"}
		},
		"required": ["id"],
		"additionalProperties": false
	}`)

	out, _, err := runCLI(t, "", "--package", "users", "schema", path)
	require.NoError(t, err)

	assert.Contains(t, out, "type User struct {\n")
	assert.Contains(t, out, "return parsec.Failed[User](codec.MissingField(c, \"id\"))")
	assert.Contains(t, out, "return codec.RejectUnknown(at, key)")
}

func TestRun_SchemaFromStdinWithRootName(t *testing.T) {
	out, _, err := runCLI(t, `{"title": "Ignored", "properties": {"ok": {"type": "boolean"}}}`,
		"--root-name", "Status", "schema", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "type Status struct {\n")
}

func TestRun_Fmt(t *testing.T) {
	input := `{"b": [1, 2.50], "a": null, "s": "é"}`

	t.Run("compact", func(t *testing.T) {
		out, _, err := runCLI(t, input, "fmt", "--compact")
		require.NoError(t, err)
		assert.Equal(t, `{"b":[1,2.50],"a":null,"s":"é"}`+"\n", out)
	})

	t.Run("indented", func(t *testing.T) {
		out, _, err := runCLI(t, `{"a": [1]}`, "fmt", "--indent", "\t")
		require.NoError(t, err)
		assert.Equal(t, "{\n\t\"a\": [\n\t\t1\n\t]\n}\n", out)
	})

	t.Run("reject duplicates", func(t *testing.T) {
		_, _, err := runCLI(t, `{"a": 1, "a": 2}`, "--duplicates", "reject", "fmt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate key "a"`)
	})
}

func TestRun_BadArguments(t *testing.T) {
	_, _, err := runCLI(t, "", "transmogrify")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeInput, appErr.Type)
}

func TestRun_InvalidPolicy(t *testing.T) {
	_, _, err := runCLI(t, "{}", "--absent", "drop", "infer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
