package resp

import (
	"bufio"
	"io"
	"strconv"
)

// ReplyEncoder writes DynamicReply values back out as RESP3 frames. It
// exists for tests and tools that need to round-trip a decoded reply tree,
// and for servers/proxies that want to re-emit a reply they decoded
// generically. Unlike Encoder, which only ever writes the command-array
// subset of the wire format, ReplyEncoder writes the full reply grammar.
type ReplyEncoder struct {
	w       *bufio.Writer
	scratch []byte
}

// NewReplyEncoder wraps w.
func NewReplyEncoder(w io.Writer) *ReplyEncoder {
	return &ReplyEncoder{
		w:       bufio.NewWriter(w),
		scratch: make([]byte, 0, 64),
	}
}

// Flush pushes any buffered writes out to the underlying writer.
func (e *ReplyEncoder) Flush() error {
	return e.w.Flush()
}

// WriteReply writes r as a single RESP3 frame, recursing into List/Set/Map
// children. The wire tag chosen for ReplyString is always $ (bulk string):
// the distinction between a simple string and a bulk string reply collapses
// into ReplyString on decode, so either wire tag decodes back to the same
// DynamicReply and $ is the uniform choice on the way out.
func (e *ReplyEncoder) WriteReply(r *DynamicReply) error {
	switch r.Kind {
	case ReplyNil:
		return e.writeLine(TagNull, nil)
	case ReplyBool:
		b := byte('f')
		if r.Bool {
			b = 't'
		}
		return e.writeBytes([]byte{byte(TagBoolean), b, '\r', '\n'})
	case ReplyNumber:
		return e.writeLine(TagInteger, strconv.AppendInt(e.scratch[:0], r.Number, 10))
	case ReplyDouble:
		return e.writeLine(TagDouble, strconv.AppendFloat(e.scratch[:0], r.Double, 'f', -1, 64))
	case ReplyBigNumber:
		return e.writeLine(TagBigNumber, r.BigNumber)
	case ReplyString:
		return e.writeBulkString(r.Str)
	case ReplyErr:
		return e.writeLine(TagError, []byte(r.ErrMsg))
	case ReplyList:
		return e.writeAggregate(TagArray, r.List)
	case ReplySet:
		return e.writeAggregate(TagSet, r.Set)
	case ReplyMap:
		return e.writeMap(r.Map)
	default:
		return &ProtocolError{Msg: "unknown ReplyKind in DynamicReply"}
	}
}

func (e *ReplyEncoder) writeBulkString(b []byte) error {
	if err := e.writeBytes([]byte{byte(TagBulkString)}); err != nil {
		return err
	}
	if err := e.writeBytes(strconv.AppendInt(e.scratch[:0], int64(len(b)), 10)); err != nil {
		return err
	}
	if err := e.writeBytes(delim); err != nil {
		return err
	}
	if err := e.writeBytes(b); err != nil {
		return err
	}
	return e.writeBytes(delim)
}

func (e *ReplyEncoder) writeLine(tag Tag, body []byte) error {
	if err := e.writeBytes([]byte{byte(tag)}); err != nil {
		return err
	}
	if err := e.writeBytes(body); err != nil {
		return err
	}
	return e.writeBytes(delim)
}

func (e *ReplyEncoder) writeAggregate(tag Tag, elems []DynamicReply) error {
	if err := e.writeLine(tag, strconv.AppendInt(e.scratch[:0], int64(len(elems)), 10)); err != nil {
		return err
	}
	for i := range elems {
		if err := e.WriteReply(&elems[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReplyEncoder) writeMap(pairs []KV[DynamicReply, DynamicReply]) error {
	if err := e.writeLine(TagMap, strconv.AppendInt(e.scratch[:0], int64(len(pairs)), 10)); err != nil {
		return err
	}
	for i := range pairs {
		if err := e.WriteReply(&pairs[i].Key); err != nil {
			return err
		}
		if err := e.WriteReply(&pairs[i].Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReplyEncoder) writeBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}
