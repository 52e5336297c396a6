// Package generator turns type descriptors into Go source: one struct per
// type and one codec per struct, written against the codec runtime.
package generator

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/mcncl/serdegen/internal/config"
	"github.com/mcncl/serdegen/internal/descriptor"
	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
)

// GeneratedHeader marks generated files for tools and reviewers.
const GeneratedHeader = "// Code generated by serdegen. DO NOT EDIT."

var runtimeImports = []string{
	"github.com/mcncl/serdegen/codec",
	"github.com/mcncl/serdegen/jsonv",
	"github.com/mcncl/serdegen/parsec",
}

// Generator is responsible for generating Go source from descriptors
type Generator struct {
	config *config.Config
	logger *zap.Logger
}

// NewGenerator creates a new Generator instance with default settings
func NewGenerator() *Generator {
	return NewGeneratorWithConfig(config.NewConfig(), nil)
}

// NewGeneratorWithConfig creates a Generator that reads the output options
// of cfg.
func NewGeneratorWithConfig(cfg *config.Config, logger *zap.Logger) *Generator {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{config: cfg, logger: logger}
}

// Generate validates set and returns the source of its package. The output
// is valid Go but not gofmt-aligned; run it through the formatter.
func (g *Generator) Generate(set models.DescriptorSet) (string, error) {
	if err := descriptor.Validate(&set); err != nil {
		return "", err
	}
	names, err := newNamer(set)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	g.writeHeader(&buf)
	fmt.Fprintf(&buf, "package %s\n\n", set.Package)
	writeImports(&buf, collectImports(set))

	if set.RootSlice != "" {
		root := set.Types[0].Name
		fmt.Fprintf(&buf, "// %s is a JSON array of %s.\n", set.RootSlice, root)
		fmt.Fprintf(&buf, "type %s = []%s\n\n", set.RootSlice, root)
		fmt.Fprintf(&buf, "// %sCodec decodes and encodes %s.\n", set.RootSlice, set.RootSlice)
		fmt.Fprintf(&buf, "var %sCodec = codec.Slice(%sCodec)\n\n", set.RootSlice, root)
	}

	for _, td := range set.Types {
		g.writeType(&buf, td, names)
		g.logger.Debug("generated codec",
			zap.String("type", td.Name),
			zap.Int("fields", len(td.Fields)),
			zap.String("absent", string(td.Absent)),
			zap.String("unknown", string(td.Unknown)))
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

func (g *Generator) writeHeader(buf *bytes.Buffer) {
	buf.WriteString(GeneratedHeader)
	buf.WriteString("\n\n")
	header := strings.TrimSpace(g.config.Output.FileHeader)
	if header == "" {
		return
	}
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if !strings.HasPrefix(line, "//") {
			line = strings.TrimRight("// "+line, " ")
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
}

func collectImports(set models.DescriptorSet) []string {
	seen := make(map[string]bool)
	for _, imp := range runtimeImports {
		seen[imp] = true
	}
	for _, td := range set.Types {
		for _, f := range td.Fields {
			for _, imp := range f.Type.Imports() {
				seen[imp] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for imp := range seen {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

// writeImports writes standard library imports first, followed by
// third-party imports with a blank line in between.
func writeImports(buf *bytes.Buffer, imports []string) {
	var stdLib, thirdParty []string
	for _, imp := range imports {
		// Standard library imports don't have dots
		if strings.Contains(strings.SplitN(imp, "/", 2)[0], ".") {
			thirdParty = append(thirdParty, imp)
		} else {
			stdLib = append(stdLib, imp)
		}
	}

	buf.WriteString("import (\n")
	for _, imp := range stdLib {
		fmt.Fprintf(buf, "\t%q\n", imp)
	}
	if len(stdLib) > 0 && len(thirdParty) > 0 {
		buf.WriteString("\n")
	}
	for _, imp := range thirdParty {
		fmt.Fprintf(buf, "\t%q\n", imp)
	}
	buf.WriteString(")\n\n")
}

type hoisted struct {
	name string
	expr string
}

func (g *Generator) writeType(buf *bytes.Buffer, td models.TypeDescriptor, names *namer) {
	impl := names.impl[td.Name]

	// Composite codecs are built once, at package initialization.
	codecs := make([]string, len(td.Fields))
	var vars []hoisted
	for i, f := range td.Fields {
		if !f.Type.Composite() {
			codecs[i] = f.Type.CodecExpr()
			continue
		}
		name := names.fresh(strcase.ToLowerCamel(td.Name+f.Name) + "Codec")
		vars = append(vars, hoisted{name: name, expr: f.Type.CodecExpr()})
		codecs[i] = name
	}

	doc := td.Doc
	if doc == "" {
		doc = td.Name + " is generated from its descriptor."
	}
	writeDoc(buf, doc, "")
	fmt.Fprintf(buf, "type %s struct {\n", td.Name)
	for _, f := range td.Fields {
		writeDoc(buf, f.Doc, "\t")
		fmt.Fprintf(buf, "\t%s %s%s\n", f.Name, f.Type.GoType(), jsonTag(td, f))
	}
	buf.WriteString("}\n\n")

	fmt.Fprintf(buf, "// %sCodec decodes and encodes %s.\n", td.Name, td.Name)
	fmt.Fprintf(buf, "var %sCodec codec.Codec[%s] = %s{}\n\n", td.Name, td.Name, impl)
	if len(vars) > 0 {
		buf.WriteString("var (\n")
		for _, v := range vars {
			fmt.Fprintf(buf, "\t%s = %s\n", v.name, v.expr)
		}
		buf.WriteString(")\n\n")
	}
	fmt.Fprintf(buf, "type %s struct{}\n\n", impl)

	writeDecode(buf, td, impl, codecs)
	writeEncode(buf, td, impl, codecs)
	if g.config.Codecs.JSONMethods {
		writeJSONMethods(buf, td)
	}
}

func writeDecode(buf *bytes.Buffer, td models.TypeDescriptor, impl string, codecs []string) {
	// Only required fields and fields with defaults need to know whether
	// their member was present.
	seen := make(map[int]int)
	for i, f := range td.Fields {
		if f.Required || f.HasDefault() {
			seen[i] = len(seen)
		}
	}

	fmt.Fprintf(buf, "func (%s) Decode(c parsec.Cursor) parsec.Result[%s] {\n", impl, td.Name)
	fmt.Fprintf(buf, "\tvar v %s\n", td.Name)
	if len(seen) > 0 {
		fmt.Fprintf(buf, "\tvar seen [%d]bool\n", len(seen))
	}
	buf.WriteString("\tr := codec.DecodeObject(c, func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {\n")
	if len(td.Fields) > 0 {
		buf.WriteString("\t\tswitch key {\n")
		for i, f := range td.Fields {
			fmt.Fprintf(buf, "\t\tcase %s:\n", strconv.Quote(f.Key))
			if s, ok := seen[i]; ok {
				fmt.Fprintf(buf, "\t\t\tseen[%d] = true\n", s)
			}
			fmt.Fprintf(buf, "\t\t\treturn codec.Field(at, key, %s, &v.%s)\n", codecs[i], f.Name)
		}
		buf.WriteString("\t\t}\n")
	}
	if td.Unknown == models.UnknownReject {
		buf.WriteString("\t\treturn codec.RejectUnknown(at, key)\n")
	} else {
		buf.WriteString("\t\treturn codec.SkipValue(at)\n")
	}
	buf.WriteString("\t})\n")
	buf.WriteString("\tif !r.OK() {\n")
	fmt.Fprintf(buf, "\t\treturn parsec.Coerce[%s](r)\n", td.Name)
	buf.WriteString("\t}\n")

	for i, f := range td.Fields {
		if f.Required {
			fmt.Fprintf(buf, "\tif !seen[%d] {\n", seen[i])
			fmt.Fprintf(buf, "\t\treturn parsec.Failed[%s](codec.MissingField(c, %s))\n", td.Name, strconv.Quote(f.Key))
			buf.WriteString("\t}\n")
		}
	}
	for i, f := range td.Fields {
		if f.HasDefault() {
			fmt.Fprintf(buf, "\tif !seen[%d] {\n", seen[i])
			fmt.Fprintf(buf, "\t\tv.%s = codec.MustDecodeDefault(%s, %s)\n", f.Name, codecs[i], goString(f.Default))
			buf.WriteString("\t}\n")
		}
	}
	buf.WriteString("\treturn parsec.Success(v, r.Next)\n")
	buf.WriteString("}\n\n")
}

func writeEncode(buf *bytes.Buffer, td models.TypeDescriptor, impl string, codecs []string) {
	fmt.Fprintf(buf, "func (%s) Encode(v %s, w *jsonv.Writer) {\n", impl, td.Name)
	buf.WriteString("\tw.BeginObject()\n")
	for i, f := range td.Fields {
		key := strconv.Quote(f.Key)
		if omitsNil(td, f) {
			fmt.Fprintf(buf, "\tif v.%s != nil {\n", f.Name)
			fmt.Fprintf(buf, "\t\tw.Key(%s)\n", key)
			fmt.Fprintf(buf, "\t\t%s.Encode(v.%s, w)\n", codecs[i], f.Name)
			buf.WriteString("\t}\n")
			continue
		}
		fmt.Fprintf(buf, "\tw.Key(%s)\n", key)
		fmt.Fprintf(buf, "\t%s.Encode(v.%s, w)\n", codecs[i], f.Name)
	}
	buf.WriteString("\tw.EndObject()\n")
	buf.WriteString("}\n\n")
}

func writeJSONMethods(buf *bytes.Buffer, td models.TypeDescriptor) {
	fmt.Fprintf(buf, "// MarshalJSON encodes v with %sCodec.\n", td.Name)
	fmt.Fprintf(buf, "func (v %s) MarshalJSON() ([]byte, error) {\n", td.Name)
	fmt.Fprintf(buf, "\treturn codec.Encode(%sCodec, v), nil\n", td.Name)
	buf.WriteString("}\n\n")

	fmt.Fprintf(buf, "// UnmarshalJSON decodes data with %sCodec.\n", td.Name)
	fmt.Fprintf(buf, "func (v *%s) UnmarshalJSON(data []byte) error {\n", td.Name)
	fmt.Fprintf(buf, "\tout, err := codec.Decode(%sCodec, data).Get()\n", td.Name)
	buf.WriteString("\tif err != nil {\n\t\treturn err\n\t}\n")
	buf.WriteString("\t*v = out\n")
	buf.WriteString("\treturn nil\n")
	buf.WriteString("}\n\n")
}

// omitsNil reports whether a nil value of f is left out of the output.
// Required fields and fields with a default are always written, so a nil
// value decodes back to nil.
func omitsNil(td models.TypeDescriptor, f models.FieldDescriptor) bool {
	return td.Absent == models.AbsentOmit && !f.Required && !f.HasDefault() && f.Type.Nilable()
}

// jsonTag mirrors the codec for encoding/json users. Keys that cannot be
// written in a struct tag get none.
func jsonTag(td models.TypeDescriptor, f models.FieldDescriptor) string {
	for _, r := range f.Key {
		if r < 0x20 || r == '"' || r == '`' || r == '\\' || r == ',' {
			return ""
		}
	}
	opts := ""
	if omitsNil(td, f) {
		opts = ",omitempty"
	}
	return fmt.Sprintf(" `json:\"%s%s\"`", f.Key, opts)
}

// goString renders s as a raw string literal when it can.
func goString(s string) string {
	if strings.ContainsAny(s, "`\r") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

func writeDoc(buf *bytes.Buffer, doc, indent string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			buf.WriteString(indent + "//\n")
			continue
		}
		buf.WriteString(indent + "// " + line + "\n")
	}
}

// namer hands out package-level identifiers that do not collide with the
// declared types, their codec variables or each other.
type namer struct {
	used map[string]bool
	impl map[string]string
}

func newNamer(set models.DescriptorSet) (*namer, error) {
	n := &namer{used: make(map[string]bool), impl: make(map[string]string)}
	exported := make([]string, 0, 2*len(set.Types)+2)
	for _, td := range set.Types {
		exported = append(exported, td.Name, td.Name+"Codec")
	}
	if set.RootSlice != "" {
		exported = append(exported, set.RootSlice, set.RootSlice+"Codec")
	}
	for _, name := range exported {
		if n.used[name] {
			return nil, errors.NewGenerateError(fmt.Sprintf("generated identifier %s is declared twice", name), errors.ErrDuplicateName)
		}
		n.used[name] = true
	}
	for _, td := range set.Types {
		n.impl[td.Name] = n.fresh(strcase.ToLowerCamel(td.Name) + "Codec")
	}
	return n, nil
}

func (n *namer) fresh(base string) string {
	name := base
	for i := 2; n.used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n.used[name] = true
	return name
}
