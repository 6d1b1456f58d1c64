package resp

import "bufio"

// decodeBody implements shapeDecoder for Optional[T]: a nil frame sets
// absent, anything else decodes T from the (already-read) header.
func (o *Optional[T]) decodeBody(br *bufio.Reader, h header) error {
	if h.isNil() {
		o.setAbsent()
		return nil
	}
	o.Valid = true
	return decodeBody(br, h, &o.Val)
}

func (o *OrErr[T]) decodeBody(br *bufio.Reader, h header) error {
	if o.code.Cap() == 0 {
		o.code = NewFixBuf(errCodeCap)
	}
	switch {
	case h.isNil():
		o.kind = orErrNil
		return nil
	case h.Tag == TagError:
		o.kind = orErrErr
		return o.code.setFrom(errCodeToken(h.Line))
	default:
		o.kind = orErrOk
		return decodeBody(br, h, &o.val)
	}
}

// errCodeToken returns the first whitespace-delimited token of an error
// frame's body, which spec.md defines as the error's "code".
func errCodeToken(line []byte) []byte {
	i := 0
	for i < len(line) && line[i] != ' ' {
		i++
	}
	return line[:i]
}

// decodeBody implements shapeDecoder for KV[K,V] when it is decoded as a
// standalone target: a 2-element aggregate whose elements become Key and
// Value in order.
func (kv *KV[K, V]) decodeBody(br *bufio.Reader, h header) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "KV"}
	}
	if h.Tag != TagArray && h.Tag != TagSet {
		return &UnexpectedTag{Tag: h.Tag, Target: "KV"}
	}
	n, err := h.length()
	if err != nil {
		return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
	}
	if n != 2 {
		return &ProtocolError{Msg: "KV target requires a 2-element aggregate"}
	}
	if err := Decode(br, &kv.Key); err != nil {
		return err
	}
	return Decode(br, &kv.Value)
}

// The allocating-mode counterparts below let Optional[T]/OrErr[T]/KV[K,V]
// be used with DecodeAlloc too, recursing into DecodeAlloc for their
// wrapped type(s) instead of Decode so that e.g. Optional[string] or
// Optional[[]byte] works.

func (o *Optional[T]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	if h.isNil() {
		o.setAbsent()
		return nil
	}
	o.Valid = true
	return decodeAllocBody(br, h, a, &o.Val)
}

func (o *OrErr[T]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	if o.code.Cap() == 0 {
		o.code = NewFixBuf(errCodeCap)
	}
	switch {
	case h.isNil():
		o.kind = orErrNil
		return nil
	case h.Tag == TagError:
		o.kind = orErrErr
		return o.code.setFrom(errCodeToken(h.Line))
	default:
		o.kind = orErrOk
		return decodeAllocBody(br, h, a, &o.val)
	}
}

// decodeBody rejects OrFullErr under the non-allocating decoder: its
// message field is an owned string, which only DecodeAlloc can produce.
func (o *OrFullErr[T]) decodeBody(br *bufio.Reader, h header) error {
	return &ProtocolError{Msg: "OrFullErr requires DecodeAlloc, not Decode"}
}

func (o *OrFullErr[T]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	switch {
	case h.isNil():
		o.kind = orErrNil
		return nil
	case h.Tag == TagError:
		o.kind = orErrErr
		o.code = string(errCodeToken(h.Line))
		o.message = string(h.Line)
		a.track()
		return nil
	default:
		o.kind = orErrOk
		return decodeAllocBody(br, h, a, &o.val)
	}
}

func (kv *KV[K, V]) decodeAllocBody(br *bufio.Reader, h header, a *Allocator) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "KV"}
	}
	if h.Tag != TagArray && h.Tag != TagSet {
		return &UnexpectedTag{Tag: h.Tag, Target: "KV"}
	}
	n, err := h.length()
	if err != nil {
		return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
	}
	if n != 2 {
		return &ProtocolError{Msg: "KV target requires a 2-element aggregate"}
	}
	if err := DecodeAlloc(br, a, &kv.Key); err != nil {
		return err
	}
	return DecodeAlloc(br, a, &kv.Value)
}
