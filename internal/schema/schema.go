// Package schema reads JSON Schema documents and converts them to type
// descriptors.
package schema

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/mcncl/serdegen/codec"
	"github.com/mcncl/serdegen/internal/config"
	"github.com/mcncl/serdegen/internal/descriptor"
	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// SchemaType handles JSON Schema type field which can be string or array of strings
type SchemaType struct {
	Types []string
}

// Primary returns the first non-null type, or "" if none
func (st SchemaType) Primary() string {
	for _, t := range st.Types {
		if t != "null" {
			return t
		}
	}
	return ""
}

// IsNullable returns true if "null" is one of the allowed types
func (st SchemaType) IsNullable() bool {
	for _, t := range st.Types {
		if t == "null" {
			return true
		}
	}
	return false
}

func (st SchemaType) has(name string) bool {
	for _, t := range st.Types {
		if t == name {
			return true
		}
	}
	return false
}

// AdditionalProperties handles JSON Schema additionalProperties which can be bool or Schema
type AdditionalProperties struct {
	Allowed bool    // If true, any additional properties allowed; if false, none allowed
	Schema  *Schema // If set, additional properties must match this schema
}

// Property is a named subschema. Properties keep document order.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema represents a JSON Schema document. Keywords that do not affect the
// shape of the generated types (minLength, pattern, ...) are skipped.
type Schema struct {
	Ref         string
	Title       string
	Description string
	Format      string

	Type SchemaType

	Properties           []Property
	Required             []string
	AdditionalProperties *AdditionalProperties

	Items *Schema

	Enum     []jsonv.Value
	Nullable bool

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema

	// Definitions merges "definitions" and "$defs".
	Definitions []Property

	Default jsonv.Value
}

// Property returns the subschema of the named property.
func (s *Schema) Property(name string) (*Schema, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// Definition returns the named definition.
func (s *Schema) Definition(name string) (*Schema, bool) {
	for _, p := range s.Definitions {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// ParseFile reads and parses a JSON Schema from a file. Files ending in
// .jsonc may carry comments and trailing commas.
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError("failed to read schema file", err)
	}
	if filepath.Ext(path) == ".jsonc" {
		data = jsonc.ToJSON(data)
	}
	return parse(filepath.Base(path), string(data))
}

// ParseBytes parses JSON Schema from bytes
func ParseBytes(data []byte) (*Schema, error) {
	return parse("schema", string(data))
}

// ParseString parses JSON Schema from a string
func ParseString(s string) (*Schema, error) {
	return parse("schema", s)
}

func parse(source, text string) (*Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInputError(source+" is empty", errors.ErrEmptyInput)
	}
	s, err := codec.DecodeString(Codec, text).Get()
	if err != nil {
		var f *parsec.Failure
		if stderrors.As(err, &f) {
			return nil, errors.FromFailure(source, f)
		}
		return nil, errors.NewParsingError("failed to parse JSON Schema", err)
	}
	return s, nil
}

// Converter converts JSON Schema to type descriptors
type Converter struct {
	schema    *Schema
	config    *config.Config
	logger    *zap.Logger
	set       models.DescriptorSet
	names     map[string]int            // Track used names to avoid collisions
	resolved  map[string]models.TypeRef // Cache for already resolved $refs
	resolving map[string]bool
}

// NewConverter creates a new schema converter. A nil config uses defaults
// and a nil logger discards output.
func NewConverter(schema *Schema, cfg *config.Config, logger *zap.Logger) *Converter {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		schema:    schema,
		config:    cfg,
		logger:    logger,
		names:     make(map[string]int),
		resolved:  make(map[string]models.TypeRef),
		resolving: make(map[string]bool),
	}
}

// Convert builds descriptors for the root object schema and every object
// schema it reaches. The root type comes first.
func (c *Converter) Convert(rootName string) (models.DescriptorSet, error) {
	if rootName == "" {
		rootName = c.schema.Title
		if rootName == "" {
			rootName = "Root"
		}
	}

	root, err := c.deref(c.schema)
	if err != nil {
		return models.DescriptorSet{}, errors.NewAnalysisError("failed to convert schema", err)
	}
	if len(root.AllOf) > 0 {
		root = c.mergeAllOf(root)
	}
	if !isObject(root) {
		return models.DescriptorSet{}, errors.NewAnalysisError("schema root must describe an object", nil)
	}

	name := c.uniqueName(typeName(rootName))
	if c.schema.Ref != "" {
		c.resolved[c.schema.Ref] = models.Struct(name)
	}
	if _, err := c.convertObject(root, name); err != nil {
		return models.DescriptorSet{}, errors.NewAnalysisError("failed to convert schema", err)
	}

	c.set.Package = c.config.Package
	if err := descriptor.Validate(&c.set); err != nil {
		return models.DescriptorSet{}, err
	}
	return c.set, nil
}

// convertSchema returns the type of s and whether it admits null.
func (c *Converter) convertSchema(s *Schema, suggestedName string) (models.TypeRef, bool, error) {
	if s.Ref != "" {
		ref, err := c.resolveRef(s.Ref)
		return ref, s.Nullable, err
	}

	if len(s.AllOf) > 0 {
		return c.convertSchema(c.mergeAllOf(s), suggestedName)
	}

	if alts := append(append([]*Schema(nil), s.AnyOf...), s.OneOf...); len(alts) > 0 {
		return c.convertAlternatives(alts, suggestedName)
	}

	nullable := s.Nullable || s.Type.IsNullable()
	nonNull := 0
	for _, t := range s.Type.Types {
		if t != "null" {
			nonNull++
		}
	}
	if nonNull > 1 {
		return models.Scalar(models.KindAny), nullable, nil
	}

	schemaType := s.Type.Primary()
	if schemaType == "" {
		switch {
		case len(s.Properties) > 0 || s.AdditionalProperties != nil:
			schemaType = "object"
		case s.Items != nil:
			schemaType = "array"
		}
	}

	switch schemaType {
	case "object":
		if len(s.Properties) == 0 {
			return c.convertMap(s, suggestedName, nullable)
		}
		ref, err := c.convertObject(s, c.uniqueName(suggestedName))
		return ref, nullable, err
	case "array":
		elem := models.Scalar(models.KindAny)
		if s.Items != nil {
			ref, elemNullable, err := c.convertSchema(s.Items, singularize(suggestedName))
			if err != nil {
				return models.TypeRef{}, false, fmt.Errorf("failed to convert array items: %w", err)
			}
			if elemNullable && !ref.Nilable() {
				ref = models.PointerTo(ref)
			}
			elem = ref
		}
		return models.SliceOf(elem), nullable, nil
	case "string":
		return convertString(s), nullable, nil
	case "integer":
		return convertInteger(s), nullable, nil
	case "number":
		return convertNumber(s), nullable, nil
	case "boolean":
		return models.Scalar(models.KindBool), nullable, nil
	default:
		// Unknown, missing or "null" type
		return models.Scalar(models.KindAny), nullable || schemaType == "null", nil
	}
}

// convertAlternatives handles anyOf and oneOf. A single non-null
// alternative becomes that type; anything richer becomes any.
func (c *Converter) convertAlternatives(alts []*Schema, suggestedName string) (models.TypeRef, bool, error) {
	var picked *Schema
	nullable, count := false, 0
	for _, alt := range alts {
		if alt.Ref == "" && len(alt.Type.Types) == 1 && alt.Type.Types[0] == "null" {
			nullable = true
			continue
		}
		picked = alt
		count++
	}
	if count != 1 {
		return models.Scalar(models.KindAny), nullable, nil
	}
	ref, altNullable, err := c.convertSchema(picked, suggestedName)
	return ref, nullable || altNullable, err
}

func (c *Converter) convertMap(s *Schema, suggestedName string, nullable bool) (models.TypeRef, bool, error) {
	elem := models.Scalar(models.KindAny)
	if ap := s.AdditionalProperties; ap != nil && ap.Schema != nil {
		ref, elemNullable, err := c.convertSchema(ap.Schema, singularize(suggestedName))
		if err != nil {
			return models.TypeRef{}, false, fmt.Errorf("failed to convert additionalProperties: %w", err)
		}
		if elemNullable && !ref.Nilable() {
			ref = models.PointerTo(ref)
		}
		elem = ref
	}
	return models.MapOf(elem), nullable, nil
}

// convertObject records a struct named name for s. The descriptor is
// registered before its properties are converted so that recursive
// references resolve to it.
func (c *Converter) convertObject(s *Schema, name string) (models.TypeRef, error) {
	td := models.TypeDescriptor{
		Name:    name,
		Doc:     docOf(s),
		Absent:  c.config.Codecs.Absent,
		Unknown: c.config.Codecs.Unknown,
	}
	if ap := s.AdditionalProperties; ap != nil && !ap.Allowed {
		td.Unknown = models.UnknownReject
	}
	idx := len(c.set.Types)
	c.set.Types = append(c.set.Types, td)

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	fields := make([]models.FieldDescriptor, 0, len(s.Properties))
	goNames := make(map[string]int)
	for _, prop := range s.Properties {
		goName := uniqueFieldName(goNames, identifier(c.config.GetFieldName(prop.Name)))
		field := models.FieldDescriptor{
			Name:     goName,
			Key:      prop.Name,
			Required: required[prop.Name],
			Doc:      strings.TrimSpace(prop.Schema.Description),
		}

		var nullable bool
		if mapping, found := c.config.FindTypeMapping(prop.Name); found {
			ref, err := mapping.TypeRef()
			if err != nil {
				return models.TypeRef{}, fmt.Errorf("type mapping for %s: %w", prop.Name, err)
			}
			field.Type = ref
			if mapping.Comment != "" {
				field.Doc = mapping.Comment
			}
		} else {
			ref, isNull, err := c.convertSchema(prop.Schema, name+goName)
			if err != nil {
				return models.TypeRef{}, fmt.Errorf("failed to convert property %s: %w", prop.Name, err)
			}
			field.Type = ref
			nullable = isNull
		}

		// Field is pointer if: explicitly nullable, or optional and the
		// config asks for pointers
		if !field.Type.Nilable() && (nullable || (!field.Required && c.config.Types.OptionalAsPointers)) {
			field.Type = models.PointerTo(field.Type)
		}

		if prop.Schema.Default != nil {
			if field.Required {
				c.logger.Debug("ignoring default of required property",
					zap.String("type", name), zap.String("property", prop.Name))
			} else {
				field.Default = jsonv.Write(prop.Schema.Default)
			}
		}
		fields = append(fields, field)
	}

	c.set.Types[idx].Fields = fields
	c.logger.Debug("converted object schema", zap.String("type", name), zap.Int("fields", len(fields)))
	return models.Struct(name), nil
}

func convertString(s *Schema) models.TypeRef {
	// Only date-time is RFC 3339; date and time stay strings.
	if s.Format == "date-time" {
		return models.Scalar(models.KindTime)
	}
	return models.Scalar(models.KindString)
}

func convertInteger(s *Schema) models.TypeRef {
	switch s.Format {
	case "int8":
		return models.Scalar(models.KindInt8)
	case "int16":
		return models.Scalar(models.KindInt16)
	case "int32":
		return models.Scalar(models.KindInt32)
	case "uint8":
		return models.Scalar(models.KindUint8)
	case "uint16":
		return models.Scalar(models.KindUint16)
	case "uint32":
		return models.Scalar(models.KindUint32)
	case "uint64":
		return models.Scalar(models.KindUint64)
	default:
		return models.Scalar(models.KindInt64)
	}
}

func convertNumber(s *Schema) models.TypeRef {
	switch s.Format {
	case "float":
		return models.Scalar(models.KindFloat32)
	case "decimal":
		return models.Scalar(models.KindDecimal)
	default:
		return models.Scalar(models.KindFloat64)
	}
}

// resolveRef resolves a local $ref. Object definitions become named structs;
// other definitions are inlined.
func (c *Converter) resolveRef(ref string) (models.TypeRef, error) {
	// Check cache first to avoid duplicate struct generation
	if cached, ok := c.resolved[ref]; ok {
		return cached, nil
	}

	defName, def, err := c.lookupRef(ref)
	if err != nil {
		return models.TypeRef{}, err
	}

	target := def
	if len(target.AllOf) > 0 {
		target = c.mergeAllOf(target)
	}
	if target.Ref == "" && isObject(target) && len(target.Properties) > 0 {
		name := c.uniqueName(typeName(defName))
		c.resolved[ref] = models.Struct(name)
		return c.convertObject(target, name)
	}

	if c.resolving[ref] {
		return models.TypeRef{}, fmt.Errorf("$ref %s refers to itself", ref)
	}
	c.resolving[ref] = true
	defer delete(c.resolving, ref)

	typeRef, _, err := c.convertSchema(def, typeName(defName))
	if err != nil {
		return models.TypeRef{}, err
	}
	c.resolved[ref] = typeRef
	return typeRef, nil
}

// lookupRef handles local references like "#/definitions/User" or
// "#/$defs/User".
func (c *Converter) lookupRef(ref string) (string, *Schema, error) {
	var name string
	switch {
	case strings.HasPrefix(ref, "#/definitions/"):
		name = strings.TrimPrefix(ref, "#/definitions/")
	case strings.HasPrefix(ref, "#/$defs/"):
		name = strings.TrimPrefix(ref, "#/$defs/")
	default:
		// External refs not supported yet
		return "", nil, fmt.Errorf("external $ref not supported: %s", ref)
	}
	name = strings.ReplaceAll(strings.ReplaceAll(name, "~1", "/"), "~0", "~")
	def, ok := c.schema.Definition(name)
	if !ok {
		return "", nil, fmt.Errorf("unresolved $ref: %s", ref)
	}
	return name, def, nil
}

// deref follows a chain of $refs to the schema it names.
func (c *Converter) deref(s *Schema) (*Schema, error) {
	seen := make(map[string]bool)
	for s.Ref != "" {
		if seen[s.Ref] {
			return nil, fmt.Errorf("$ref %s refers to itself", s.Ref)
		}
		seen[s.Ref] = true
		_, def, err := c.lookupRef(s.Ref)
		if err != nil {
			return nil, err
		}
		s = def
	}
	return s, nil
}

// mergeAllOf merges the object schemas of s.AllOf. Later properties replace
// earlier ones with the same name.
func (c *Converter) mergeAllOf(s *Schema) *Schema {
	merged := &Schema{
		Title:                s.Title,
		Description:          s.Description,
		Type:                 SchemaType{Types: []string{"object"}},
		Properties:           append([]Property(nil), s.Properties...),
		Required:             append([]string(nil), s.Required...),
		AdditionalProperties: s.AdditionalProperties,
	}

	for _, part := range s.AllOf {
		// Resolve refs first
		resolved, err := c.deref(part)
		if err != nil {
			c.logger.Debug("skipping allOf member", zap.Error(err))
			continue
		}
		if len(resolved.AllOf) > 0 {
			resolved = c.mergeAllOf(resolved)
		}

		for _, p := range resolved.Properties {
			merged.Properties = setProperty(merged.Properties, p)
		}
		merged.Required = append(merged.Required, resolved.Required...)

		// Take first non-empty title/description
		if merged.Title == "" {
			merged.Title = resolved.Title
		}
		if merged.Description == "" {
			merged.Description = resolved.Description
		}
		if merged.AdditionalProperties == nil {
			merged.AdditionalProperties = resolved.AdditionalProperties
		}
	}
	return merged
}

func setProperty(props []Property, p Property) []Property {
	for i := range props {
		if props[i].Name == p.Name {
			props[i] = p
			return props
		}
	}
	return append(props, p)
}

func isObject(s *Schema) bool {
	if s.Type.has("object") {
		return true
	}
	return len(s.Type.Types) == 0 && len(s.Properties) > 0
}

func docOf(s *Schema) string {
	if s.Description != "" {
		return strings.TrimSpace(s.Description)
	}
	return strings.TrimSpace(s.Title)
}

// uniqueName ensures struct names are unique
func (c *Converter) uniqueName(baseName string) string {
	name := baseName
	count := c.names[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	c.names[baseName] = count + 1
	return name
}

func uniqueFieldName(seen map[string]int, name string) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		return fmt.Sprintf("%s%d", name, n)
	}
	return name
}

func typeName(s string) string {
	return identifier(strcase.ToCamel(s))
}

// identifier drops runes that cannot appear in a Go identifier and makes
// the result exported.
func identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := []rune(b.String())
	switch {
	case len(out) == 0:
		return "Field"
	case !unicode.IsLetter(out[0]):
		return "Field" + string(out)
	}
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}

// singularize attempts to singularize a name
func singularize(s string) string {
	lower := strings.ToLower(s)

	// Simple rules - could be expanded
	switch {
	case strings.HasSuffix(lower, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(lower, "sses") || strings.HasSuffix(lower, "xes"):
		return s[:len(s)-2]
	case strings.HasSuffix(lower, "ss") || strings.HasSuffix(lower, "us") || strings.HasSuffix(lower, "is"):
		return s
	case strings.HasSuffix(lower, "s") && len(s) > 1:
		return s[:len(s)-1]
	}
	return s
}
