package resp

import (
	"bufio"
	"reflect"
)

// Tuple decodes a RESP array whose elements correspond, in order, to the
// exported fields of T — as opposed to Record (record.go), which decodes a
// map (or key/value-pairs array) by matching wire keys against field names.
// This is the shape of a MULTI/EXEC aggregate reply, whose N elements are
// the N queued commands' replies in the order they were queued, with no
// wire-level naming at all. Wrap it in OrErr/OrFullErr for Trans/TransAlloc,
// since EXEC can fail atomically and reply with an error or a nil array.
type Tuple[T any] struct {
	Val T
}

func (t *Tuple[T]) decodeBody(br *bufio.Reader, h header) error {
	return decodePositionalBody(br, h, reflect.ValueOf(&t.Val).Elem(), false, nil)
}

func (t *Tuple[T]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	return decodePositionalBody(br, h, reflect.ValueOf(&t.Val).Elem(), true, a)
}

func decodePositionalBody(br *bufio.Reader, h header, rv reflect.Value, allocating bool, alloc *Allocator) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "Tuple"}
	}
	if h.Tag != TagArray && h.Tag != TagSet {
		return &UnexpectedTag{Tag: h.Tag, Target: "Tuple"}
	}
	n, err := h.length()
	if err != nil {
		return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
	}

	t := rv.Type()
	var idx []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			idx = append(idx, i)
		}
	}
	if int(n) != len(idx) {
		return &ProtocolError{Msg: "Tuple field count does not match aggregate length"}
	}

	for _, i := range idx {
		fp := rv.Field(i).Addr().Interface()
		if allocating {
			err = DecodeAlloc(br, alloc, fp)
		} else {
			err = Decode(br, fp)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
