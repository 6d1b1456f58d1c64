package resp

import (
	"bufio"
	"fmt"

	"github.com/kynetiq/resp/internal/bytesutil"
)

// header is the parsed first line of a RESP frame: the tag byte plus
// whatever followed it up to (not including) the trailing \r\n.
type header struct {
	Tag  Tag
	Line []byte
}

var tagSet = map[Tag]bool{
	TagSimpleString: true, TagError: true, TagInteger: true, TagBulkString: true, TagArray: true,
	TagDouble: true, TagBoolean: true, TagBigNumber: true, TagNull: true, TagSet: true, TagMap: true,
}

// readHeader reads one frame's tag byte and header line. The returned Line
// is only valid until the next read on br; callers that need to retain it
// must copy it.
func readHeader(br *bufio.Reader) (header, error) {
	b, err := bytesutil.ReadBytesDelim(br)
	if err != nil {
		return header{}, err
	}
	if len(b) == 0 {
		return header{}, &ProtocolError{Msg: "empty frame line"}
	}
	tag := Tag(b[0])
	if !tagSet[tag] {
		return header{}, &ProtocolError{Msg: fmt.Sprintf("unknown frame tag %q", b[0])}
	}
	return header{Tag: tag, Line: b[1:]}, nil
}

// length parses h.Line as the length/count header carried by $, *, ~, and %
// frames. For % (map) the returned count is the number of key/value pairs,
// matching the wire encoding (not doubled).
func (h header) length() (int64, error) {
	return bytesutil.ParseInt(h.Line)
}

// isNil reports whether h is one of the three nil markers: $-1, *-1, or _.
func (h header) isNil() bool {
	if h.Tag == TagNull {
		return true
	}
	if h.Tag != TagBulkString && h.Tag != TagArray {
		return false
	}
	n, err := h.length()
	return err == nil && n == -1
}

// skipFrame reads and discards exactly one frame, including all of its
// children for aggregate frames. It is used both to implement Void targets
// and to tolerate unknown Record fields.
func skipFrame(br *bufio.Reader) error {
	h, err := readHeader(br)
	if err != nil {
		return err
	}
	return skipFrameBody(br, h)
}

// readBody reads the n-byte body (plus trailing \r\n) of a $ frame into the
// given scratch buffer, returning a slice of scratch holding just the body.
// scratch is expanded if it's not big enough.
func readBody(br *bufio.Reader, scratch []byte, n int64) ([]byte, error) {
	scratch = bytesutil.Expand(scratch, int(n))
	if _, err := readFull(br, scratch); err != nil {
		return nil, err
	}
	if err := bytesutil.ReadNDiscard(br, len(delim)); err != nil {
		return nil, err
	}
	return scratch, nil
}

func readFull(br *bufio.Reader, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := br.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
