package analyzer

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/mcncl/serdegen/internal/config"
	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
)

// DefaultRootName is the default name for the root type if not specified.
const DefaultRootName = "Root"

// Analyzer infers type descriptors from sample JSON documents.
type Analyzer struct {
	// structNames tracks generated type names to avoid collisions
	structNames map[string]int
	set         models.DescriptorSet
	config      *config.Config
	logger      *zap.Logger
}

// NewAnalyzer creates a new Analyzer with the default configuration.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(config.NewConfig(), zap.NewNop())
}

// NewAnalyzerWithConfig creates a new Analyzer with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		structNames: make(map[string]int),
		config:      cfg,
		logger:      logger,
	}
}

// Analyze infers descriptors for the document in ir. The root type comes
// first; the types it refers to follow in discovery order.
func (a *Analyzer) Analyze(ir models.IntermediateRepresentation, rootName string) (models.DescriptorSet, error) {
	if rootName == "" {
		rootName = DefaultRootName
	}
	rootName = a.typeName(rootName)
	a.set = models.DescriptorSet{Package: a.config.Package}

	switch root := ir.Root.(type) {
	case *jsonv.Object:
		if _, err := a.mergeObjects([]*jsonv.Object{root}, rootName, true); err != nil {
			return models.DescriptorSet{}, err
		}
	case jsonv.Array:
		if len(root) == 0 || !allObjects(root) {
			return models.DescriptorSet{}, errors.NewAnalysisError(
				"root array must hold objects to describe a record type", nil)
		}
		if _, err := a.mergeObjects(objects(root), rootName, true); err != nil {
			return models.DescriptorSet{}, err
		}
		a.set.RootSlice = rootName + "List"
	default:
		// Wrap a scalar root in a struct with a single value field.
		ref, nullable, err := a.infer([]jsonv.Value{root}, rootName+"Value")
		if err != nil {
			return models.DescriptorSet{}, err
		}
		a.addType(models.TypeDescriptor{
			Name:    rootName,
			Fields:  []models.FieldDescriptor{{Name: "Value", Key: "value", Type: ref, Required: !nullable}},
			Absent:  a.config.Codecs.Absent,
			Unknown: a.config.Codecs.Unknown,
		}, true)
	}

	a.moveRootFirst(rootName)
	return a.set, nil
}

// infer derives one type for all of values. It reports whether any of them
// was null.
func (a *Analyzer) infer(values []jsonv.Value, name string) (models.TypeRef, bool, error) {
	nullable := false
	present := make([]jsonv.Value, 0, len(values))
	for _, v := range values {
		if jsonv.KindOf(v) == jsonv.KindNull {
			nullable = true
			continue
		}
		present = append(present, v)
	}
	if len(present) == 0 {
		return models.Scalar(models.KindAny), true, nil
	}

	switch {
	case allObjects(present):
		ref, err := a.mergeObjects(objects(present), name, false)
		return ref, nullable, err
	case allArrays(present):
		var elems []jsonv.Value
		for _, v := range present {
			elems = append(elems, v.(jsonv.Array)...)
		}
		if len(elems) == 0 {
			return models.SliceOf(models.Scalar(models.KindAny)), nullable, nil
		}
		elem, elemNull, err := a.infer(elems, singularize(name))
		if err != nil {
			return models.TypeRef{}, false, err
		}
		if elemNull && !elem.Nilable() {
			elem = models.PointerTo(elem)
		}
		return models.SliceOf(elem), nullable, nil
	}

	ref := a.scalarRef(present[0])
	for _, v := range present[1:] {
		next, ok := unify(ref, a.scalarRef(v))
		if !ok {
			a.logger.Debug("mixed value kinds, using any", zap.String("name", name))
			return models.Scalar(models.KindAny), nullable, nil
		}
		ref = next
	}
	return ref, nullable, nil
}

func (a *Analyzer) scalarRef(v jsonv.Value) models.TypeRef {
	switch v := v.(type) {
	case jsonv.Bool:
		return models.Scalar(models.KindBool)
	case jsonv.String:
		if a.config.Types.DetectTime && looksLikeTime(string(v)) {
			return models.Scalar(models.KindTime)
		}
		return models.Scalar(models.KindString)
	case jsonv.Number:
		return a.numberRef(v)
	default:
		// objects and arrays mixed with scalars
		return models.Scalar(models.KindAny)
	}
}

func looksLikeTime(s string) bool {
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || s[10] != 'T' {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

func (a *Analyzer) numberRef(n jsonv.Number) models.TypeRef {
	lit := n.Literal()
	if !strings.ContainsAny(lit, ".eE") {
		if i, ok := n.Int64(); ok {
			if a.config.Types.ForceInt64 || i < math.MinInt32 || i > math.MaxInt32 {
				return models.Scalar(models.KindInt64)
			}
			return models.Scalar(models.KindInt)
		}
		if _, ok := n.Uint64(); ok {
			return models.Scalar(models.KindUint64)
		}
		return models.Scalar(models.KindDecimal)
	}
	// Keep numbers that float64 cannot hold exactly as decimals.
	f, ok := n.Float64()
	if !ok {
		return models.Scalar(models.KindDecimal)
	}
	if exact, _ := jsonv.NumberFromFloat(f); !exact.Equal(n) {
		return models.Scalar(models.KindDecimal)
	}
	return models.Scalar(models.KindFloat64)
}

var numericRank = map[models.Kind]int{
	models.KindInt:     1,
	models.KindInt64:   2,
	models.KindFloat64: 3,
	models.KindDecimal: 4,
}

// unify returns a type that holds values of both a and b.
func unify(a, b models.TypeRef) (models.TypeRef, bool) {
	if a.Equal(b) {
		return a, true
	}
	ra, aNum := numericRank[a.Kind]
	rb, bNum := numericRank[b.Kind]
	switch {
	case aNum && bNum:
		if ra >= rb {
			return a, true
		}
		return b, true
	case a.Kind == models.KindUint64 && (bNum || b.Kind == models.KindUint64),
		b.Kind == models.KindUint64 && aNum:
		return models.Scalar(models.KindDecimal), true
	case a.Kind == models.KindTime && b.Kind == models.KindString,
		a.Kind == models.KindString && b.Kind == models.KindTime:
		return models.Scalar(models.KindString), true
	}
	return models.TypeRef{}, false
}

// mergeObjects builds one struct from sample objects. Keys keep the order of
// their first appearance. A field is required when every sample holds a
// non-null value for it.
func (a *Analyzer) mergeObjects(objs []*jsonv.Object, name string, isRoot bool) (models.TypeRef, error) {
	var keys []string
	values := make(map[string][]jsonv.Value)
	for _, obj := range objs {
		for _, m := range obj.Members() {
			if _, seen := values[m.Key]; !seen {
				keys = append(keys, m.Key)
			}
			values[m.Key] = append(values[m.Key], m.Value)
		}
	}

	td := models.TypeDescriptor{
		Name:    name,
		Fields:  make([]models.FieldDescriptor, 0, len(keys)),
		Absent:  a.config.Codecs.Absent,
		Unknown: a.config.Codecs.Unknown,
	}
	goNames := make(map[string]int)
	for _, key := range keys {
		goName := uniqueFieldName(goNames, a.fieldName(key))
		field := models.FieldDescriptor{Name: goName, Key: key}

		vals := values[key]
		nullable := false
		if mapping, found := a.config.FindTypeMapping(key); found {
			ref, err := mapping.TypeRef()
			if err != nil {
				return models.TypeRef{}, errors.NewAnalysisError(fmt.Sprintf("type mapping for %s", key), err)
			}
			field.Type = ref
			field.Doc = mapping.Comment
			for _, v := range vals {
				nullable = nullable || jsonv.KindOf(v) == jsonv.KindNull
			}
		} else {
			ref, isNull, err := a.infer(vals, name+goName)
			if err != nil {
				return models.TypeRef{}, err
			}
			field.Type = ref
			nullable = isNull
		}

		field.Required = len(vals) == len(objs) && !nullable
		if !field.Required && a.config.Types.OptionalAsPointers && !field.Type.Nilable() {
			field.Type = models.PointerTo(field.Type)
		}
		td.Fields = append(td.Fields, field)
	}

	return models.Struct(a.addType(td, isRoot)), nil
}

// addType records td unless an equivalent type exists and returns the
// final name.
func (a *Analyzer) addType(td models.TypeDescriptor, isRoot bool) string {
	if !isRoot {
		for _, existing := range a.set.Types {
			if equivalent(existing, td) {
				a.logger.Debug("reusing equivalent type", zap.String("candidate", td.Name), zap.String("type", existing.Name))
				return existing.Name
			}
		}
	}
	td.Name = a.generateUniqueStructName(td.Name)
	a.logger.Debug("inferred type", zap.String("type", td.Name), zap.Int("fields", len(td.Fields)))
	a.set.Types = append(a.set.Types, td)
	return td.Name
}

func (a *Analyzer) moveRootFirst(rootName string) {
	for i, td := range a.set.Types {
		if td.Name == rootName {
			copy(a.set.Types[1:i+1], a.set.Types[:i])
			a.set.Types[0] = td
			return
		}
	}
}

// generateUniqueStructName ensures that the struct name is unique by appending a number if needed.
func (a *Analyzer) generateUniqueStructName(baseName string) string {
	name := baseName
	count := a.structNames[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	a.structNames[baseName] = count + 1
	return name
}

func (a *Analyzer) fieldName(jsonKey string) string {
	return goIdentifier(a.config.GetFieldName(jsonKey))
}

func (a *Analyzer) typeName(name string) string {
	return goIdentifier(strcase.ToCamel(name))
}

// goIdentifier makes name a valid exported Go identifier.
func goIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "Field"
	}
	first := []rune(out)[0]
	if !unicode.IsLetter(first) {
		return "Field" + out
	}
	if !unicode.IsUpper(first) {
		return strings.ToUpper(string(first)) + out[len(string(first)):]
	}
	return out
}

func uniqueFieldName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, n+1)
}

// equivalent compares two descriptors by their fields, ignoring names.
func equivalent(x, y models.TypeDescriptor) bool {
	if len(x.Fields) != len(y.Fields) {
		return false
	}
	for i := range x.Fields {
		fx, fy := x.Fields[i], y.Fields[i]
		if fx.Key != fy.Key || fx.Name != fy.Name || fx.Required != fy.Required || !fx.Type.Equal(fy.Type) {
			return false
		}
	}
	return true
}

func allObjects(vs []jsonv.Value) bool {
	for _, v := range vs {
		if jsonv.KindOf(v) != jsonv.KindObject {
			return false
		}
	}
	return true
}

func allArrays(vs []jsonv.Value) bool {
	for _, v := range vs {
		if jsonv.KindOf(v) != jsonv.KindArray {
			return false
		}
	}
	return true
}

func objects(vs []jsonv.Value) []*jsonv.Object {
	out := make([]*jsonv.Object, len(vs))
	for i, v := range vs {
		out[i] = v.(*jsonv.Object)
	}
	return out
}

// singularize attempts to convert a plural name to a singular one.
var knownSingulars = map[string]string{
	"series":    "series",
	"status":    "status",
	"analysis":  "analysis",
	"species":   "species",
	"news":      "news",
	"goods":     "goods",
	"children":  "child",
	"people":    "person",
	"men":       "man",
	"women":     "woman",
	"data":      "data",
	"media":     "media",
	"addresses": "address",
}

func singularize(plural string) string {
	lower := strings.ToLower(plural)
	for suffix, singular := range knownSingulars {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		// The suffix must be a whole word of the PascalCase name.
		cut := len(plural) - len(suffix)
		if cut > 0 && !unicode.IsUpper(rune(plural[cut])) {
			continue
		}
		replaced := singular
		if unicode.IsUpper(rune(plural[cut])) {
			replaced = strings.ToUpper(singular[:1]) + singular[1:]
		}
		return plural[:cut] + replaced
	}

	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return plural[:len(plural)-3] + "y"
	case strings.HasSuffix(lower, "ss"), strings.HasSuffix(lower, "us"), strings.HasSuffix(lower, "is"):
		return plural
	case strings.HasSuffix(lower, "s") && len(lower) > 1:
		return plural[:len(plural)-1]
	}
	return plural
}
