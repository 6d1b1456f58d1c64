package resp

import (
	"bufio"
	"errors"
	"math"
	"strconv"

	"github.com/kynetiq/resp/internal/bytesutil"
)

// shapeDecoder is implemented by container target types (Optional, OrErr,
// KV, ...) that need to inspect the frame's tag themselves, typically to
// handle the nil/error cases before recursing for their wrapped type. Decode
// consults it before falling back to the built-in dispatch table;
// DecodeAlloc consults allocShapeDecoder instead.
type shapeDecoder interface {
	decodeBody(br *bufio.Reader, h header) error
}

// Decode reads exactly one RESP frame (and its transitive children) from br
// and decodes it into dst, which must be a pointer to one of the supported
// target shapes, or nil (meaning "decode and discard, failing on error").
//
// Decode never allocates: it only writes into storage already owned by dst
// (inline buffers, primitives, fixed-length arrays, record fields). For
// owned strings, variable-length sequences, maps, or pointers, use
// DecodeAlloc.
func Decode(br *bufio.Reader, dst any) error {
	h, err := readHeader(br)
	if err != nil {
		return err
	}
	return decodeBody(br, h, dst)
}

func decodeBody(br *bufio.Reader, h header, dst any) error {
	if sd, ok := dst.(shapeDecoder); ok {
		return sd.decodeBody(br, h)
	}

	switch t := dst.(type) {
	case nil:
		return decodeVoidBody(br, h)
	case *Void:
		return decodeVoidBody(br, h)
	case *int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64,
		*float32, *float64:
		return decodeNumericBody(br, h, t)
	case *bool:
		return decodeBoolBody(br, h, t)
	case *FixBuf:
		return decodeFixBufBody(br, h, t)
	default:
		return decodeReflectBody(br, h, dst, false, nil)
	}
}

func decodeVoidBody(br *bufio.Reader, h header) error {
	switch h.Tag {
	case TagError:
		code, err := readServerErrorCode(br, h)
		if err != nil {
			return err
		}
		return &ServerError{Code: code}
	default:
		return skipFrameBody(br, h)
	}
}

// skipFrameBody discards the body (and any children) of a frame whose
// header has already been read.
func skipFrameBody(br *bufio.Reader, h header) error {
	switch h.Tag {
	case TagSimpleString, TagInteger, TagDouble, TagBoolean, TagBigNumber, TagNull, TagError:
		return nil
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			return nil
		}
		return bytesutil.ReadNDiscard(br, int(n)+len(delim))
	case TagArray, TagSet:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad aggregate length: " + err.Error()}
		}
		for i := int64(0); i < n; i++ {
			if err := skipFrame(br); err != nil {
				return err
			}
		}
		return nil
	case TagMap:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad map length: " + err.Error()}
		}
		for i := int64(0); i < n*2; i++ {
			if err := skipFrame(br); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ProtocolError{Msg: "unhandled tag " + h.Tag.String()}
	}
}

// readServerErrorCode reads a `-` frame's body (already available in
// h.Line, since simple-line frames carry their whole payload in the header
// line) and returns its first whitespace-delimited token.
func readServerErrorCode(br *bufio.Reader, h header) (string, error) {
	line := h.Line
	i := 0
	for i < len(line) && line[i] != ' ' {
		i++
	}
	return string(line[:i]), nil
}

// decodeNumericBody dispatches signed/unsigned integer and float targets.
func decodeNumericBody(br *bufio.Reader, h header, dst any) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "numeric"}
	}
	switch h.Tag {
	case TagError:
		code, _ := readServerErrorCode(br, h)
		return &ServerError{Code: code}
	case TagInteger, TagDouble, TagBigNumber:
		return assignNumeric(dst, h.Line, h.Tag)
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			return &UnexpectedNil{Target: "numeric"}
		}
		scratch := bytesutil.GetBytes()
		defer bytesutil.PutBytes(scratch)
		*scratch, err = readBody(br, (*scratch)[:0], n)
		if err != nil {
			return err
		}
		return assignNumericFromString(dst, *scratch)
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "numeric"}
	}
}

// assignNumeric parses body as the numeric lexical form carried by an
// integer/double/big-number frame and range-checks it against dst's type.
func assignNumeric(dst any, body []byte, tag Tag) error {
	switch t := dst.(type) {
	case *int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64:
		if tag == TagDouble {
			f, err := strconv.ParseFloat(string(body), 64)
			if err != nil {
				return &NotANumber{Body: string(body)}
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return &NumericRange{Target: "int64"}
			}
			return assignInt(t, int64(f))
		}
		i, err := strconv.ParseInt(string(body), 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return &NumericRange{Target: "int64"}
		}
		if err != nil {
			return &NotANumber{Body: string(body)}
		}
		return assignInt(t, i)
	case *float32, *float64:
		f, err := strconv.ParseFloat(string(body), 64)
		if err != nil {
			i, ierr := bytesutil.ParseInt(body)
			if ierr != nil {
				return &NotANumber{Body: string(body)}
			}
			f = float64(i)
		}
		return assignFloat(t, f)
	}
	return &UnexpectedTag{Tag: tag, Target: "numeric"}
}

func assignNumericFromString(dst any, body []byte) error {
	switch t := dst.(type) {
	case *int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64:
		i, err := bytesutil.ParseInt(body)
		if err != nil {
			return &NotANumber{Body: string(body)}
		}
		return assignInt(t, i)
	case *float32, *float64:
		f, err := strconv.ParseFloat(string(body), 64)
		if err != nil {
			return &NotANumber{Body: string(body)}
		}
		return assignFloat(t, f)
	}
	return &NotANumber{Body: string(body)}
}

func assignInt(dst any, i int64) error {
	switch t := dst.(type) {
	case *int:
		*t = int(i)
	case *int8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return &NumericRange{Target: "int8"}
		}
		*t = int8(i)
	case *int16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return &NumericRange{Target: "int16"}
		}
		*t = int16(i)
	case *int32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return &NumericRange{Target: "int32"}
		}
		*t = int32(i)
	case *int64:
		*t = i
	case *uint:
		if i < 0 {
			return &NumericRange{Target: "uint"}
		}
		*t = uint(i)
	case *uint8:
		if i < 0 || i > math.MaxUint8 {
			return &NumericRange{Target: "uint8"}
		}
		*t = uint8(i)
	case *uint16:
		if i < 0 || i > math.MaxUint16 {
			return &NumericRange{Target: "uint16"}
		}
		*t = uint16(i)
	case *uint32:
		if i < 0 || i > math.MaxUint32 {
			return &NumericRange{Target: "uint32"}
		}
		*t = uint32(i)
	case *uint64:
		if i < 0 {
			return &NumericRange{Target: "uint64"}
		}
		*t = uint64(i)
	}
	return nil
}

func assignFloat(dst any, f float64) error {
	switch t := dst.(type) {
	case *float32:
		if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return &NumericRange{Target: "float32"}
		}
		*t = float32(f)
	case *float64:
		*t = f
	}
	return nil
}

func decodeBoolBody(br *bufio.Reader, h header, dst *bool) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "bool"}
	}
	switch h.Tag {
	case TagError:
		code, _ := readServerErrorCode(br, h)
		return &ServerError{Code: code}
	case TagBoolean:
		switch string(h.Line) {
		case "t":
			*dst = true
		case "f":
			*dst = false
		default:
			return &NotABool{Body: string(h.Line)}
		}
		return nil
	case TagInteger:
		switch string(h.Line) {
		case "1":
			*dst = true
		case "0":
			*dst = false
		default:
			return &NotABool{Body: string(h.Line)}
		}
		return nil
	case TagBulkString, TagSimpleString:
		var body []byte
		if h.Tag == TagSimpleString {
			body = h.Line
		} else {
			n, err := h.length()
			if err != nil {
				return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
			}
			if n < 0 {
				return &UnexpectedNil{Target: "bool"}
			}
			scratch := bytesutil.GetBytes()
			defer bytesutil.PutBytes(scratch)
			*scratch, err = readBody(br, (*scratch)[:0], n)
			if err != nil {
				return err
			}
			body = *scratch
		}
		switch string(body) {
		case "true":
			*dst = true
		case "false":
			*dst = false
		default:
			return &NotABool{Body: string(body)}
		}
		return nil
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "bool"}
	}
}

func decodeFixBufBody(br *bufio.Reader, h header, dst *FixBuf) error {
	if h.isNil() {
		return &UnexpectedNil{Target: "FixBuf"}
	}
	switch h.Tag {
	case TagError:
		code, _ := readServerErrorCode(br, h)
		return &ServerError{Code: code}
	case TagSimpleString, TagBigNumber:
		return dst.setFrom(h.Line)
	case TagBulkString:
		n, err := h.length()
		if err != nil {
			return &ProtocolError{Msg: "bad bulk string length: " + err.Error()}
		}
		if n < 0 {
			return &UnexpectedNil{Target: "FixBuf"}
		}
		if int(n) > dst.Cap() {
			if err := bytesutil.ReadNDiscard(br, int(n)+len(delim)); err != nil {
				return err
			}
			return &BufferTooSmall{Capacity: dst.Cap(), BodyLen: int(n)}
		}
		body := dst.buf[:n]
		if _, err := readFull(br, body); err != nil {
			return err
		}
		if err := bytesutil.ReadNDiscard(br, len(delim)); err != nil {
			return err
		}
		dst.n = int(n)
		return nil
	default:
		return &UnexpectedTag{Tag: h.Tag, Target: "FixBuf"}
	}
}
