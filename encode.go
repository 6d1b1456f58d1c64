package resp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Arg is a single command argument. Every Redis command argument ultimately
// becomes a bulk string on the wire; Arg's constructors produce that byte
// representation up front so encode's hot path never branches on Go's
// dynamic type system and never allocates beyond the one conversion.
type Arg struct {
	b []byte
}

// StrArg wraps a string argument.
func StrArg(s string) Arg { return Arg{b: []byte(s)} }

// BytesArg wraps a byte-string argument. b is not retained past the call
// that uses it to write a frame.
func BytesArg(b []byte) Arg { return Arg{b: b} }

// IntArg wraps a decimal integer argument.
func IntArg(i int64) Arg { return Arg{b: strconv.AppendInt(nil, i, 10)} }

// FloatArg wraps a floating-point argument, encoded as Go's shortest
// round-trip decimal representation.
func FloatArg(f float64) Arg { return Arg{b: strconv.AppendFloat(nil, f, 'f', -1, 64)} }

// BoolArg wraps a boolean argument as the literal bytes "1" or "0", the
// convention Redis commands use for boolean flags.
func BoolArg(v bool) Arg {
	if v {
		return Arg{b: []byte{'1'}}
	}
	return Arg{b: []byte{'0'}}
}

// Encoder writes commands as RESP2-style arrays of bulk strings. Any reply
// protocol (RESP2 or RESP3) may be read back; Encoder only ever writes the
// command-array subset of the wire format, per spec.md's "commands are
// uniformly RESP arrays of bulk strings" contract.
type Encoder struct {
	w       *bufio.Writer
	scratch []byte
}

// NewEncoder wraps w. The writer should not be used outside of the Encoder
// afterward.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:       bufio.NewWriter(w),
		scratch: make([]byte, 0, 64),
	}
}

// WriteCommand writes one command: an array header of len(args)+1, then the
// name and each argument as a bulk string, in order. It does not flush; callers batching
// multiple commands into one pipeline should call Flush once at the end.
func (e *Encoder) WriteCommand(name string, args ...Arg) error {
	if err := e.writeArrayHeader(len(args) + 1); err != nil {
		return err
	}
	if err := e.writeBulkStrBytes([]byte(name)); err != nil {
		return err
	}
	for _, a := range args {
		if err := e.writeBulkStrBytes(a.b); err != nil {
			return err
		}
	}
	return nil
}

// WriteRaw writes name as a command with no arguments (a one-element array
// of one bulk string), flushing nothing. It exists so the client can splice
// in the MULTI/EXEC wrapper commands without constructing an Arg for each.
func (e *Encoder) WriteRaw(name string) error {
	return e.WriteCommand(name)
}

// Flush pushes any buffered writes out to the underlying writer. The
// client calls this once per Send/Pipe/Trans after writing every command,
// not after each individual command.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

func (e *Encoder) writeBulkStrBytes(b []byte) error {
	var err error
	err = e.writeBytes(err, bulkStrPrefix)
	err = e.writeBytes(err, strconv.AppendInt(e.scratch[:0], int64(len(b)), 10))
	err = e.writeBytes(err, delim)
	err = e.writeBytes(err, b)
	err = e.writeBytes(err, delim)
	return err
}

func (e *Encoder) writeArrayHeader(n int) error {
	var err error
	err = e.writeBytes(err, arrayPrefix)
	err = e.writeBytes(err, strconv.AppendInt(e.scratch[:0], int64(n), 10))
	err = e.writeBytes(err, delim)
	return err
}

func (e *Encoder) writeBytes(prevErr error, b []byte) error {
	if prevErr != nil {
		return prevErr
	}
	_, err := e.w.Write(b)
	return err
}

var (
	bulkStrPrefix = []byte{byte(TagBulkString)}
	arrayPrefix   = []byte{byte(TagArray)}
)

// ArgFrom builds an Arg from a loosely typed value, for callers assembling
// command arguments from a dynamic source (config, a script, JSON input)
// rather than calling StrArg/IntArg/etc. directly. A slice, map, or struct
// passed here fails at construction with an error rather than being
// silently flattened, per the rule that structured argument values are a
// user error.
func ArgFrom(v any) (Arg, error) {
	switch vt := v.(type) {
	case string:
		return StrArg(vt), nil
	case []byte:
		return BytesArg(vt), nil
	case bool:
		return BoolArg(vt), nil
	case int:
		return IntArg(int64(vt)), nil
	case int8:
		return IntArg(int64(vt)), nil
	case int16:
		return IntArg(int64(vt)), nil
	case int32:
		return IntArg(int64(vt)), nil
	case int64:
		return IntArg(vt), nil
	case uint:
		return IntArg(int64(vt)), nil
	case uint8:
		return IntArg(int64(vt)), nil
	case uint16:
		return IntArg(int64(vt)), nil
	case uint32:
		return IntArg(int64(vt)), nil
	case uint64:
		return IntArg(int64(vt)), nil
	case float32:
		return FloatArg(float64(vt)), nil
	case float64:
		return FloatArg(vt), nil
	default:
		return Arg{}, fmt.Errorf("resp: %T is not a valid command argument; arguments must be scalar", v)
	}
}
