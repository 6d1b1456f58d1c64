package resp

import (
	"bufio"
	"reflect"
	"strings"
)

// fieldTag is the struct tag key used to name a Record's wire field. A field
// tagged `resp:"-"` is never matched against wire keys.
const fieldTag = "resp"

// Strict wraps a Record target so that an unknown key in the wire aggregate
// is a decode error (UnknownField) instead of being skipped. The default,
// used when a Record struct is decoded directly, is to tolerate unknown
// fields, per spec.md §9's open question.
type Strict[T any] struct {
	Val T
}

func (s *Strict[T]) decodeBody(br *bufio.Reader, h header) error {
	return decodeRecordBody(br, h, reflect.ValueOf(&s.Val).Elem(), true, false, nil)
}

func (s *Strict[T]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	return decodeRecordBody(br, h, reflect.ValueOf(&s.Val).Elem(), true, true, a)
}

// decodeReflectBody is the fallback dispatch for target shapes that aren't
// covered by an explicit case in decodeBody: fixed-length arrays/tuples and
// Record structs. When allocating is true, element/field decode recurses
// through DecodeAlloc instead of Decode, so that e.g. a Record field typed
// []byte or a nested slice can itself allocate.
func decodeReflectBody(br *bufio.Reader, h header, dst any, allocating bool, alloc *Allocator) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return &UnexpectedTag{Tag: h.Tag, Target: "unsupported target"}
	}
	elem := v.Elem()

	switch elem.Kind() {
	case reflect.Array:
		return decodeFixedArrayBody(br, h, elem, allocating, alloc)
	case reflect.Struct:
		return decodeRecordBody(br, h, elem, false, allocating, alloc)
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: elem.Kind().String()}
	}
}

func decodeFixedArrayBody(br *bufio.Reader, h header, arr reflect.Value, allocating bool, alloc *Allocator) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "fixed array"}
	}
	if h.Tag != TagArray && h.Tag != TagSet {
		return &UnexpectedTag{Tag: h.Tag, Target: "fixed array"}
	}
	n, err := h.length()
	if err != nil {
		return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
	}
	if int(n) != arr.Len() {
		return &ProtocolError{Msg: "fixed array length mismatch"}
	}
	for i := 0; i < arr.Len(); i++ {
		ep := arr.Index(i).Addr().Interface()
		var err error
		if allocating {
			err = DecodeAlloc(br, alloc, ep)
		} else {
			err = Decode(br, ep)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type recordField struct {
	name     string
	index    int
	optional bool
}

func recordFields(t reflect.Type) []recordField {
	fields := make([]recordField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get(fieldTag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, recordField{
			name:     name,
			index:    i,
			optional: isOptionalField(sf.Type),
		})
	}
	return fields
}

// isOptionalField reports whether t is an instantiation of Optional[T], the
// one target shape spec.md names as defaulting to absent when its record
// field is missing from the wire aggregate.
func isOptionalField(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.PkgPath() != packagePath {
		return false
	}
	return strings.HasPrefix(t.Name(), "Optional[")
}

// decodeRecordBody decodes a map or even-length-array frame into a Record's
// fields, matching declared field names against wire keys case-sensitively
// and byte-exact. Unknown keys are skipped unless strict is true.
func decodeRecordBody(br *bufio.Reader, h header, rv reflect.Value, strict, allocating bool, alloc *Allocator) error {
	fields := recordFields(rv.Type())
	byName := make(map[string]recordField, len(fields))
	for _, f := range fields {
		byName[f.name] = f
	}
	set := make(map[string]bool, len(fields))

	if h.isNil() {
		return &UnexpectedNil{Target: "Record"}
	}
	var pairs int64
	switch h.Tag {
	case TagMap:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad map length: " + err.Error()}
		}
		pairs = n
	case TagArray, TagSet:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
		}
		if n%2 != 0 {
			return &ProtocolError{Msg: "record target requires an even-length array"}
		}
		pairs = n / 2
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "Record"}
	}

	key := NewFixBuf(256)
	for i := int64(0); i < pairs; i++ {
		if err := Decode(br, &key); err != nil {
			return err
		}
		name := key.String()

		f, ok := byName[name]
		if !ok {
			if strict {
				if err := skipFrame(br); err != nil {
					return err
				}
				return &UnknownField{Name: name}
			}
			if err := skipFrame(br); err != nil {
				return err
			}
			continue
		}

		fv := rv.Field(f.index)
		var err error
		if allocating {
			err = DecodeAlloc(br, alloc, fv.Addr().Interface())
		} else {
			err = Decode(br, fv.Addr().Interface())
		}
		if err != nil {
			return err
		}
		set[name] = true
	}

	for _, f := range fields {
		if !set[f.name] && !f.optional {
			return &MissingField{Name: f.name}
		}
	}
	return nil
}
