// Package resp implements the RESP2 and RESP3 wire protocols used by Redis,
// with a type-directed reply decoder: callers pick the Go shape they want a
// reply decoded into (a primitive, a FixBuf, a Record, a DynamicReply, ...)
// and the decoder drives itself off of that shape rather than off of the
// wire.
//
// Two decode paths exist. Decode (decode.go) never allocates: it only
// writes into storage already owned by the target shape. DecodeAlloc
// (decode_alloc.go) may pull memory from a caller-supplied Allocator for
// owned strings, sequences, and indirections; that memory is released with
// FreeReply (free.go).
package resp

// Tag identifies the kind of a single RESP frame by its leading byte.
type Tag byte

// The closed set of RESP2 and RESP3 frame tags.
const (
	TagSimpleString Tag = '+'
	TagError        Tag = '-'
	TagInteger      Tag = ':'
	TagBulkString   Tag = '$'
	TagArray        Tag = '*'

	// RESP3 extensions.
	TagDouble    Tag = ','
	TagBoolean   Tag = '#'
	TagBigNumber Tag = '('
	TagNull      Tag = '_'
	TagSet       Tag = '~'
	TagMap       Tag = '%'
)

func (t Tag) String() string { return string(byte(t)) }

var delim = []byte{'\r', '\n'}

// packagePath identifies this package's import path for reflect-based
// detection of Optional[T] record fields and KV[K,V] sequence elements.
const packagePath = "github.com/kynetiq/resp"
