package descriptor

import (
	"fmt"

	"github.com/mcncl/serdegen/codec"
	"github.com/mcncl/serdegen/internal/errors"
	"github.com/mcncl/serdegen/internal/models"
	"github.com/mcncl/serdegen/jsonv"
)

// decodes reports whether c accepts a JSON literal.
func decodes[T any](c codec.Codec[T]) func(string) error {
	return func(lit string) error {
		return codec.DecodeString(c, lit).Error()
	}
}

var scalarChecks = map[models.Kind]func(string) error{
	models.KindString:  decodes(codec.String),
	models.KindBool:    decodes(codec.Bool),
	models.KindInt:     decodes(codec.Int),
	models.KindInt8:    decodes(codec.Int8),
	models.KindInt16:   decodes(codec.Int16),
	models.KindInt32:   decodes(codec.Int32),
	models.KindInt64:   decodes(codec.Int64),
	models.KindUint:    decodes(codec.Uint),
	models.KindUint8:   decodes(codec.Uint8),
	models.KindUint16:  decodes(codec.Uint16),
	models.KindUint32:  decodes(codec.Uint32),
	models.KindUint64:  decodes(codec.Uint64),
	models.KindFloat32: decodes(codec.Float32),
	models.KindFloat64: decodes(codec.Float64),
	models.KindDecimal: decodes(codec.Decimal),
	models.KindNumber:  decodes(codec.Number),
	models.KindAny:     decodes(codec.Value),
	models.KindTime:    decodes(codec.Time),
}

// CheckDefault reports whether literal is a value the codec of ref would
// decode. Struct defaults are checked against their descriptors.
func CheckDefault(set *models.DescriptorSet, ref models.TypeRef, literal string) error {
	v, err := jsonv.Parse(literal).Get()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidDefault, err)
	}
	if err := checkValue(set, ref, v, ""); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidDefault, err)
	}
	return nil
}

func checkValue(set *models.DescriptorSet, ref models.TypeRef, v jsonv.Value, path string) error {
	at := func(err error) error {
		if path == "" {
			return err
		}
		return fmt.Errorf("at %s: %w", path, err)
	}
	isNull := jsonv.KindOf(v) == jsonv.KindNull

	switch ref.Kind {
	case models.KindPointer:
		if isNull {
			return nil
		}
		return checkValue(set, *ref.Elem, v, path)
	case models.KindSlice:
		if isNull {
			return nil
		}
		arr, ok := v.(jsonv.Array)
		if !ok {
			return at(fmt.Errorf("expected array, found %s", jsonv.KindOf(v)))
		}
		for i, e := range arr {
			if err := checkValue(set, *ref.Elem, e, fmt.Sprintf("%s/%d", path, i)); err != nil {
				return err
			}
		}
		return nil
	case models.KindMap:
		if isNull {
			return nil
		}
		obj, ok := v.(*jsonv.Object)
		if !ok {
			return at(fmt.Errorf("expected object, found %s", jsonv.KindOf(v)))
		}
		for _, m := range obj.Members() {
			if err := checkValue(set, *ref.Elem, m.Value, path+"/"+m.Key); err != nil {
				return err
			}
		}
		return nil
	case models.KindStruct:
		td, ok := set.Lookup(ref.Name)
		if !ok {
			return at(fmt.Errorf("%w %s", errors.ErrUnknownType, ref.Name))
		}
		obj, ok := v.(*jsonv.Object)
		if !ok {
			return at(fmt.Errorf("expected object, found %s", jsonv.KindOf(v)))
		}
		for _, m := range obj.Members() {
			f, ok := td.Field(m.Key)
			if !ok {
				if td.Unknown == models.UnknownReject {
					return at(fmt.Errorf("unknown field: %s", m.Key))
				}
				continue
			}
			if err := checkValue(set, f.Type, m.Value, path+"/"+m.Key); err != nil {
				return err
			}
		}
		for _, f := range td.Fields {
			if f.Required && !obj.Has(f.Key) {
				return at(fmt.Errorf("missing field: %s", f.Key))
			}
		}
		return nil
	default:
		if err := scalarChecks[ref.Kind](jsonv.Write(v)); err != nil {
			return at(err)
		}
		return nil
	}
}
