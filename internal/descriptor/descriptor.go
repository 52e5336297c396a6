// Package descriptor loads type descriptors from YAML (or JSON) files and
// validates them before generation.
package descriptor

import (
	"bytes"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
)

// Defaults fills policies that a descriptor file leaves unset.
type Defaults struct {
	Package string
	Absent  models.AbsentPolicy
	Unknown models.UnknownPolicy
}

type fileSet struct {
	Package  string `yaml:"package"`
	Defaults struct {
		Absent  string `yaml:"absent"`
		Unknown string `yaml:"unknown"`
	} `yaml:"defaults"`
	Types     []fileType `yaml:"types"`
	RootSlice string     `yaml:"root_slice"`
}

type fileType struct {
	Name    string      `yaml:"name"`
	Doc     string      `yaml:"doc"`
	Absent  string      `yaml:"absent"`
	Unknown string      `yaml:"unknown"`
	Fields  []fileField `yaml:"fields"`
}

type fileField struct {
	Name     string    `yaml:"name"`
	Key      string    `yaml:"key"`
	Type     string    `yaml:"type"`
	Required bool      `yaml:"required"`
	Default  yaml.Node `yaml:"default"`
	Doc      string    `yaml:"doc"`
}

// Load reads and validates a descriptor file. Files ending in .jsonc may
// carry comments and trailing commas.
func Load(path string, defaults Defaults) (models.DescriptorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DescriptorSet{}, errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
		}
		return models.DescriptorSet{}, errors.NewInputError(fmt.Sprintf("failed to read '%s'", path), err)
	}
	if filepath.Ext(path) == ".jsonc" {
		data = jsonc.ToJSON(data)
	}
	return Parse(data, defaults)
}

// Parse decodes and validates descriptors.
func Parse(data []byte, defaults Defaults) (models.DescriptorSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.DescriptorSet{}, errors.NewInputError("descriptor file is empty", errors.ErrEmptyInput)
	}
	var file fileSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return models.DescriptorSet{}, errors.NewDescriptorError("failed to decode descriptors", err)
	}

	set, err := file.build(defaults)
	if err != nil {
		return models.DescriptorSet{}, err
	}
	if err := Validate(&set); err != nil {
		return models.DescriptorSet{}, err
	}
	return set, nil
}

func (f *fileSet) build(defaults Defaults) (models.DescriptorSet, error) {
	set := models.DescriptorSet{Package: f.Package, RootSlice: f.RootSlice}
	if set.Package == "" {
		set.Package = defaults.Package
	}
	absent := pick(models.AbsentPolicy(f.Defaults.Absent), defaults.Absent, models.AbsentOmit)
	unknown := pick(models.UnknownPolicy(f.Defaults.Unknown), defaults.Unknown, models.UnknownSkip)

	for _, ft := range f.Types {
		td := models.TypeDescriptor{
			Name:    ft.Name,
			Doc:     strings.TrimSpace(ft.Doc),
			Absent:  pick(models.AbsentPolicy(ft.Absent), absent),
			Unknown: pick(models.UnknownPolicy(ft.Unknown), unknown),
		}
		for _, ff := range ft.Fields {
			fd, err := ff.build()
			if err != nil {
				return models.DescriptorSet{}, errors.NewDescriptorError(fmt.Sprintf("type %s: field %s", ft.Name, ff.Key), err)
			}
			td.Fields = append(td.Fields, fd)
		}
		set.Types = append(set.Types, td)
	}
	return set, nil
}

func (ff fileField) build() (models.FieldDescriptor, error) {
	ref, err := models.ParseTypeRef(ff.Type)
	if err != nil {
		return models.FieldDescriptor{}, fmt.Errorf("%w %q: %w", errors.ErrUnknownType, ff.Type, err)
	}
	name := ff.Name
	if name == "" {
		name = strcase.ToCamel(ff.Key)
	}
	fd := models.FieldDescriptor{
		Name:     name,
		Key:      ff.Key,
		Type:     ref,
		Required: ff.Required,
		Doc:      strings.TrimSpace(ff.Doc),
	}
	if ff.Default.Kind != 0 {
		lit, err := defaultLiteral(&ff.Default)
		if err != nil {
			return models.FieldDescriptor{}, err
		}
		fd.Default = lit
	}
	return fd, nil
}

// defaultLiteral accepts a default written as a JSON literal in a YAML
// string ('["guest"]') or as plain YAML (a list, a number, ...).
func defaultLiteral(node *yaml.Node) (string, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!str" {
		if parsed, err := jsonv.Parse(node.Value).Get(); err == nil {
			return jsonv.Write(parsed), nil
		}
		return jsonv.Quote(node.Value), nil
	}
	value, err := fromYAML(node)
	if err != nil {
		return "", err
	}
	return jsonv.Write(value), nil
}

// fromYAML converts a YAML node to a JSON value, keeping mapping order.
func fromYAML(node *yaml.Node) (jsonv.Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.SequenceNode:
		arr := make(jsonv.Array, len(node.Content))
		for i, e := range node.Content {
			v, err := fromYAML(e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.MappingNode:
		obj := jsonv.NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := fromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(node.Content[i].Value, v)
		}
		return obj, nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return jsonv.Null{}, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return jsonv.Bool(b), nil
		case "!!int", "!!float":
			n, err := jsonv.ParseNumber(node.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s is not a JSON number", errors.ErrInvalidDefault, node.Value)
			}
			return n, nil
		default:
			return jsonv.String(node.Value), nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported YAML node at line %d", errors.ErrInvalidDefault, node.Line)
}

func pick[P ~string](candidates ...P) P {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// Validate checks names, policies, type references and defaults.
func Validate(set *models.DescriptorSet) error {
	if !token.IsIdentifier(set.Package) {
		return errors.NewDescriptorError(fmt.Sprintf("invalid package name %q", set.Package), nil)
	}
	if len(set.Types) == 0 {
		return errors.NewDescriptorError("no types declared", nil)
	}

	seen := make(map[string]bool, len(set.Types))
	for _, td := range set.Types {
		if !isExported(td.Name) {
			return errors.NewDescriptorError(fmt.Sprintf("type name %q must be an exported Go identifier", td.Name), nil)
		}
		if seen[td.Name] {
			return errors.NewDescriptorError(fmt.Sprintf("type %s declared twice", td.Name), errors.ErrDuplicateName)
		}
		seen[td.Name] = true
	}
	if set.RootSlice != "" {
		if !isExported(set.RootSlice) {
			return errors.NewDescriptorError(fmt.Sprintf("root slice name %q must be an exported Go identifier", set.RootSlice), nil)
		}
		if seen[set.RootSlice] {
			return errors.NewDescriptorError(fmt.Sprintf("root slice %s clashes with a type of the same name", set.RootSlice), errors.ErrDuplicateName)
		}
	}

	for i := range set.Types {
		if err := validateType(set, &set.Types[i]); err != nil {
			return err
		}
	}
	return checkCycles(set)
}

func validateType(set *models.DescriptorSet, td *models.TypeDescriptor) error {
	fail := func(format string, args ...any) error {
		return errors.NewDescriptorError(fmt.Sprintf("type %s: ", td.Name)+fmt.Sprintf(format, args...), nil)
	}
	if !td.Absent.Valid() {
		return fail("invalid absent policy %q", td.Absent)
	}
	if !td.Unknown.Valid() {
		return fail("invalid unknown-field policy %q", td.Unknown)
	}

	names := make(map[string]bool, len(td.Fields))
	keys := make(map[string]bool, len(td.Fields))
	for i := range td.Fields {
		f := &td.Fields[i]
		if f.Key == "" {
			return fail("field %d has no key", i)
		}
		if !isExported(f.Name) {
			return fail("field %s: name %q must be an exported Go identifier", f.Key, f.Name)
		}
		if names[f.Name] {
			return errors.NewDescriptorError(fmt.Sprintf("type %s: field name %s used twice", td.Name, f.Name), errors.ErrDuplicateName)
		}
		if keys[f.Key] {
			return errors.NewDescriptorError(fmt.Sprintf("type %s: key %q used twice", td.Name, f.Key), errors.ErrDuplicateName)
		}
		names[f.Name], keys[f.Key] = true, true

		var missing string
		f.Type.Walk(func(r models.TypeRef) {
			if r.Kind == models.KindStruct && missing == "" {
				if _, ok := set.Lookup(r.Name); !ok {
					missing = r.Name
				}
			}
		})
		if missing != "" {
			return errors.NewDescriptorError(fmt.Sprintf("type %s: field %s: unknown type %s", td.Name, f.Key, missing), errors.ErrUnknownType)
		}

		if f.HasDefault() {
			if f.Required {
				return fail("field %s is required and cannot have a default", f.Key)
			}
			if err := CheckDefault(set, f.Type, f.Default); err != nil {
				return errors.NewDescriptorError(fmt.Sprintf("type %s: field %s", td.Name, f.Key), err)
			}
		}
	}
	return nil
}

// checkCycles rejects types that contain themselves by value, which Go
// cannot represent.
func checkCycles(set *models.DescriptorSet) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(set.Types))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return errors.NewDescriptorError(
				fmt.Sprintf("type %s contains itself (%s); use a pointer, slice or map", name, strings.Join(append(path, name), " -> ")), nil)
		case done:
			return nil
		}
		state[name] = visiting
		td, _ := set.Lookup(name)
		for _, f := range td.Fields {
			if f.Type.Kind == models.KindStruct {
				if err := visit(f.Type.Name, append(path, name)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}
	for _, td := range set.Types {
		if err := visit(td.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

func isExported(name string) bool {
	return token.IsIdentifier(name) && token.IsExported(name)
}
