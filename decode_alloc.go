package resp

import (
	"bufio"
	"reflect"
	"strconv"
	"strings"

	"github.com/kynetiq/resp/internal/bytesutil"
)

// allocShapeDecoder is the allocating-mode counterpart of shapeDecoder. It's
// implemented by container types (Optional, OrErr, OrFullErr, KV) whose
// wrapped type may itself need to allocate.
type allocShapeDecoder interface {
	decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error
}

// DecodeAlloc reads exactly one RESP frame (and its transitive children)
// from br and decodes it into dst using a, which is the sole owner of any
// memory obtained along the way. Every allocation a produces is reachable
// from *dst; release it all with FreeReply(dst, a) before dropping a.
//
// dst may additionally be a pointer to string, []byte, a slice of any
// supported element type, a map, a pointer-to-pointer (for an owned
// indirection), DynamicReply, or OrFullErr[T] — none of which Decode
// supports, since all of them require allocation.
func DecodeAlloc(br *bufio.Reader, a *Allocator, dst any) error {
	h, err := readHeader(br)
	if err != nil {
		return err
	}
	return decodeAllocBody(br, h, a, dst)
}

func decodeAllocBody(br *bufio.Reader, h header, a *Allocator, dst any) error {
	if asd, ok := dst.(allocShapeDecoder); ok {
		return asd.decodeAllocBody(br, h, a)
	}
	switch t := dst.(type) {
	case *string:
		return decodeOwnedStringBody(br, h, a, t)
	case *[]byte:
		return decodeOwnedBytesBody(br, h, a, t)
	case *DynamicReply:
		return decodeDynamicReplyBody(br, h, a, t)
	case *FixBuf, *Void, *int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64,
		*float32, *float64, *bool:
		// These never allocate in either mode; delegate to the
		// non-allocating dispatch instead of falling into the reflect
		// fallback, which would otherwise mistake FixBuf's unexported
		// fields for a Record to decode into.
		return decodeBody(br, h, dst)
	default:
		return decodeAllocReflectBody(br, h, a, dst)
	}
}

func decodeOwnedBytesBody(br *bufio.Reader, h header, a *Allocator, dst *[]byte) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "[]byte"}
	}
	switch h.Tag {
	case TagError:
		code, _ := readServerErrorCode(br, h)
		return &ServerError{Code: code}
	case TagSimpleString, TagBigNumber:
		b := a.allocBytes(len(h.Line))
		copy(b, h.Line)
		*dst = b
		return nil
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			return &UnexpectedNil{Target: "[]byte"}
		}
		b := a.allocBytes(int(n))
		if _, err := readFull(br, b); err != nil {
			return err
		}
		if err := bytesutil.ReadNDiscard(br, len(delim)); err != nil {
			return err
		}
		*dst = b
		return nil
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "[]byte"}
	}
}

// decodeOwnedStringBody reads the frame's body through a package-local
// pooled scratch buffer (never exposed to the caller) and copies it once
// into an owned Go string, counted as a single outstanding allocation. A Go
// string's backing array is immutable and not poolable, unlike []byte, so
// it is tracked by count only rather than routed through a.bytePool.
func decodeOwnedStringBody(br *bufio.Reader, h header, a *Allocator, dst *string) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "string"}
	}
	switch h.Tag {
	case TagError:
		code, _ := readServerErrorCode(br, h)
		return &ServerError{Code: code}
	case TagSimpleString, TagBigNumber, TagInteger:
		*dst = string(h.Line)
		a.track()
		return nil
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			return &UnexpectedNil{Target: "string"}
		}
		scratch := bytesutil.GetBytes()
		defer bytesutil.PutBytes(scratch)
		*scratch, err = readBody(br, (*scratch)[:0], n)
		if err != nil {
			return err
		}
		*dst = string(*scratch)
		a.track()
		return nil
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "string"}
	}
}

func decodeDynamicReplyBody(br *bufio.Reader, h header, a *Allocator, dst *DynamicReply) error {
	switch h.Tag {
	case TagNull:
		dst.Kind = ReplyNil
		return nil
	case TagBoolean:
		dst.Kind = ReplyBool
		switch string(h.Line) {
		case "t":
			dst.Bool = true
		case "f":
			dst.Bool = false
		default:
			return &NotABool{Body: string(h.Line)}
		}
		return nil
	case TagInteger:
		i, err := bytesutil.ParseInt(h.Line)
		if err != nil {
			return &NotANumber{Body: string(h.Line)}
		}
		dst.Kind = ReplyNumber
		dst.Number = i
		return nil
	case TagDouble:
		var f float64
		if err := assignFloatLine(h.Line, &f); err != nil {
			return err
		}
		dst.Kind = ReplyDouble
		dst.Double = f
		return nil
	case TagBigNumber:
		b := a.allocBytes(len(h.Line))
		copy(b, h.Line)
		dst.Kind = ReplyBigNumber
		dst.BigNumber = b
		return nil
	case TagSimpleString:
		b := a.allocBytes(len(h.Line))
		copy(b, h.Line)
		dst.Kind = ReplyString
		dst.Str = b
		return nil
	case TagError:
		code, msg := errCodeToken(h.Line), h.Line
		dst.Kind = ReplyErr
		dst.ErrCode = string(code)
		dst.ErrMsg = string(msg)
		return nil
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			dst.Kind = ReplyNil
			return nil
		}
		b := a.allocBytes(int(n))
		if _, err := readFull(br, b); err != nil {
			return err
		}
		if err := bytesutil.ReadNDiscard(br, len(delim)); err != nil {
			return err
		}
		dst.Kind = ReplyString
		dst.Str = b
		return nil
	case TagArray, TagSet:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
		}
		if n < 0 {
			dst.Kind = ReplyNil
			return nil
		}
		elems := make([]DynamicReply, n)
		a.allocNode()
		for i := range elems {
			if err := DecodeAlloc(br, a, &elems[i]); err != nil {
				return err
			}
		}
		if h.Tag == TagSet {
			dst.Kind = ReplySet
			dst.Set = elems
		} else {
			dst.Kind = ReplyList
			dst.List = elems
		}
		return nil
	case TagMap:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad map length: " + err.Error()}
		}
		pairs := make([]KV[DynamicReply, DynamicReply], n)
		a.allocNode()
		for i := range pairs {
			if err := DecodeAlloc(br, a, &pairs[i].Key); err != nil {
				return err
			}
			if err := DecodeAlloc(br, a, &pairs[i].Value); err != nil {
				return err
			}
		}
		dst.Kind = ReplyMap
		dst.Map = pairs
		return nil
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "DynamicReply"}
	}
}

func assignFloatLine(line []byte, f *float64) error {
	var err error
	*f, err = strconv.ParseFloat(string(line), 64)
	if err != nil {
		return &NotANumber{Body: string(line)}
	}
	return nil
}

func decodeAllocReflectBody(br *bufio.Reader, h header, a *Allocator, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return decodeBody(br, h, dst) // let the non-allocating switch produce the right error
	}
	elem := v.Elem()

	switch elem.Kind() {
	case reflect.Ptr:
		return decodeOwnedPointerBody(br, h, a, elem)
	case reflect.Slice:
		return decodeSequenceBody(br, h, a, elem)
	case reflect.Map:
		return decodeMapBody(br, h, a, elem)
	case reflect.Array:
		return decodeFixedArrayBody(br, h, elem, true, a)
	case reflect.Struct:
		return decodeRecordBody(br, h, elem, false, true, a)
	default:
		return decodeBody(br, h, dst)
	}
}

// decodeOwnedPointerBody implements the owned-pointer-to-T target shape: a
// **T is given, and a new T is heap-allocated and decoded into, counted as
// one outstanding node allocation. Decoding into the pointee is identical to
// decoding directly into T (spec.md §3): a nil frame is only special-cased
// by T's own dispatch (Optional, OrErr, OrFullErr, DynamicReply, a nested
// owned pointer, ...). For a T that does not itself admit nil, the nil
// frame surfaces as T's own UnexpectedNil rather than silently leaving the
// outer pointer nil with no error.
func decodeOwnedPointerBody(br *bufio.Reader, h header, a *Allocator, elem reflect.Value) error {
	inner := reflect.New(elem.Type().Elem())
	a.allocNode()
	if err := decodeAllocBody(br, h, a, inner.Interface()); err != nil {
		return err
	}
	elem.Set(inner)
	return nil
}

func decodeSequenceBody(br *bufio.Reader, h header, a *Allocator, elem reflect.Value) error {
	if isKVElemType(elem.Type().Elem()) {
		return decodeKVSequenceBody(br, h, a, elem)
	}
	if h.Tag == TagNull {
		return &UnexpectedNil{Target: "sequence"}
	}
	if h.Tag != TagArray && h.Tag != TagSet {
		return &UnexpectedTag{Tag: h.Tag, Target: "sequence"}
	}
	n, err := h.length()
	if err != nil {
		return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
	}
	if n < 0 {
		return &UnexpectedNil{Target: "sequence"}
	}
	slice := reflect.MakeSlice(elem.Type(), int(n), int(n))
	a.allocNode()
	for i := 0; i < int(n); i++ {
		ep := slice.Index(i).Addr().Interface()
		if err := DecodeAlloc(br, a, ep); err != nil {
			return err
		}
	}
	elem.Set(slice)
	return nil
}

// isKVElemType reports whether t is an instantiation of KV[K,V], the one
// sequence element type spec.md §4.2 gives its own rule: decodeKVSequenceBody
// either takes adjacent wire elements of a flat aggregate two at a time, or
// decodes each 2-element sub-aggregate of a nested aggregate as one KV.
func isKVElemType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.PkgPath() != packagePath {
		return false
	}
	return strings.HasPrefix(t.Name(), "KV[")
}

// decodeKVSequenceBody decodes []KV[K,V] from either of the two wire shapes
// spec.md §4.2 gives the KV-sequence rule for: a flat aggregate (a map
// frame's n key/value pairs, or an array/set frame's 2n elements taken two
// at a time in wire order — the shape a HGETALL-style reply takes), or an
// aggregate of n 2-element sub-aggregates, each decoded as one pair.
func decodeKVSequenceBody(br *bufio.Reader, h header, a *Allocator, elem reflect.Value) error {
	switch h.Tag {
	case TagNull:
		return &UnexpectedNil{Target: "sequence"}
	case TagMap:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad map length: " + err.Error()}
		}
		return decodeKVPairsFlat(br, a, elem, n)
	case TagArray, TagSet:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
		}
		if n < 0 {
			return &UnexpectedNil{Target: "sequence"}
		}
		if n == 0 {
			elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
			return nil
		}
		first, err := readHeader(br)
		if err != nil {
			return err
		}
		if isTwoElementAggregate(first) {
			return decodeKVPairsNested(br, a, elem, n, first)
		}
		if n%2 != 0 {
			return &ProtocolError{Msg: "KV sequence target requires an even-length array"}
		}
		return decodeKVPairsFlatFrom(br, a, elem, n/2, first)
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "sequence"}
	}
}

// isTwoElementAggregate reports whether h is the header of a 2-element
// array or set frame, the shape spec.md §4.2's KV-sequence rule describes
// as "an aggregate of 2-element sub-aggregates".
func isTwoElementAggregate(h header) bool {
	if h.Tag != TagArray && h.Tag != TagSet {
		return false
	}
	n, err := h.length()
	return err == nil && n == 2
}

// decodeKVPairsFlat decodes a map frame's n key/value pairs, none of whose
// headers have been read yet, into []KV[K,V].
func decodeKVPairsFlat(br *bufio.Reader, a *Allocator, elem reflect.Value, pairs int64) error {
	slice := reflect.MakeSlice(elem.Type(), int(pairs), int(pairs))
	a.allocNode()
	for i := int64(0); i < pairs; i++ {
		kv := slice.Index(int(i))
		if err := DecodeAlloc(br, a, kv.FieldByName("Key").Addr().Interface()); err != nil {
			return err
		}
		if err := DecodeAlloc(br, a, kv.FieldByName("Value").Addr().Interface()); err != nil {
			return err
		}
	}
	elem.Set(slice)
	return nil
}

// decodeKVPairsFlatFrom is decodeKVPairsFlat for a flat array/set aggregate
// whose first element's header (the first pair's key) has already been
// read off the wire to distinguish it from the nested shape.
func decodeKVPairsFlatFrom(br *bufio.Reader, a *Allocator, elem reflect.Value, pairs int64, firstKeyHeader header) error {
	slice := reflect.MakeSlice(elem.Type(), int(pairs), int(pairs))
	a.allocNode()
	kv := slice.Index(0)
	if err := decodeAllocBody(br, firstKeyHeader, a, kv.FieldByName("Key").Addr().Interface()); err != nil {
		return err
	}
	if err := DecodeAlloc(br, a, kv.FieldByName("Value").Addr().Interface()); err != nil {
		return err
	}
	for i := int64(1); i < pairs; i++ {
		kv := slice.Index(int(i))
		if err := DecodeAlloc(br, a, kv.FieldByName("Key").Addr().Interface()); err != nil {
			return err
		}
		if err := DecodeAlloc(br, a, kv.FieldByName("Value").Addr().Interface()); err != nil {
			return err
		}
	}
	elem.Set(slice)
	return nil
}

// decodeKVPairsNested decodes an aggregate of n 2-element sub-aggregates
// into []KV[K,V], one sub-aggregate per pair, reusing KV[K,V]'s own
// decodeAllocBody for each. The first sub-aggregate's header has already
// been read off the wire to distinguish this shape from the flat one.
func decodeKVPairsNested(br *bufio.Reader, a *Allocator, elem reflect.Value, pairs int64, firstHeader header) error {
	slice := reflect.MakeSlice(elem.Type(), int(pairs), int(pairs))
	a.allocNode()
	if err := decodeAllocBody(br, firstHeader, a, slice.Index(0).Addr().Interface()); err != nil {
		return err
	}
	for i := int64(1); i < pairs; i++ {
		h, err := readHeader(br)
		if err != nil {
			return err
		}
		if err := decodeAllocBody(br, h, a, slice.Index(int(i)).Addr().Interface()); err != nil {
			return err
		}
	}
	elem.Set(slice)
	return nil
}

func decodeMapBody(br *bufio.Reader, h header, a *Allocator, elem reflect.Value) error {
	t := elem.Type()
	if h.isNil() {
		return &UnexpectedNil{Target: "map"}
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
			return &ProtocolError{Msg: "map target requires an even-length array"}
		}
		pairs = n / 2
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "map"}
	}

	m := reflect.MakeMapWithSize(t, int(pairs))
	a.allocNode()
	for i := int64(0); i < pairs; i++ {
		kp := reflect.New(t.Key())
		if err := DecodeAlloc(br, a, kp.Interface()); err != nil {
			return err
		}
		vp := reflect.New(t.Elem())
		if err := DecodeAlloc(br, a, vp.Interface()); err != nil {
			return err
		}
		m.SetMapIndex(kp.Elem(), vp.Elem())
	}
	elem.Set(m)
	return nil
}
