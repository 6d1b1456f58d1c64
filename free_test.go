package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeReplyString(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var s string
	require.NoError(t, DecodeAlloc(reader("$5\r\nhello\r\n"), a, &s))
	require.NotEqual(t, before, a.Outstanding())

	FreeReply(&s, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplySequence(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var ss []string
	in := "*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &ss))

	FreeReply(&ss, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyMap(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var m map[string]int64
	in := "%2\r\n$1\r\na\r\n:1\r\n$1\r\nb\r\n:2\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &m))

	FreeReply(&m, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyDynamicReply(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var d DynamicReply
	in := "*3\r\n:1\r\n$5\r\nhello\r\n%1\r\n$1\r\nk\r\n:9\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &d))

	FreeReply(&d, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyOwnedPointer(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var p *int64
	require.NoError(t, DecodeAlloc(reader(":5\r\n"), a, &p))

	FreeReply(&p, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyRecordWithOwnedField(t *testing.T) {
	type row struct {
		Name string `resp:"name"`
		ID   int64  `resp:"id"`
	}
	a := NewAllocator()
	before := a.Outstanding()

	var r row
	in := "*4\r\n$4\r\nname\r\n$5\r\nhello\r\n$2\r\nid\r\n:3\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &r))

	FreeReply(&r, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyOrFullErr(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var oe OrFullErr[int64]
	require.NoError(t, DecodeAlloc(reader("-ERR boom\r\n"), a, &oe))

	FreeReply(&oe, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyKVSequence(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var kvs []KV[string, string]
	in := "*4\r\n$3\r\nfoo\r\n$3\r\nbar\r\n$3\r\nbaz\r\n$3\r\nqux\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &kvs))

	FreeReply(&kvs, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyKVSequenceNestedPairs(t *testing.T) {
	a := NewAllocator()
	before := a.Outstanding()

	var kvs []KV[string, string]
	in := "*2\r\n*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n*2\r\n$3\r\nbaz\r\n$3\r\nqux\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &kvs))

	FreeReply(&kvs, a)
	assert.Equal(t, before, a.Outstanding())
}

func TestFreeReplyTuple(t *testing.T) {
	type agg struct {
		A int64
		B string
	}
	a := NewAllocator()
	before := a.Outstanding()

	var tup Tuple[agg]
	in := "*2\r\n:1\r\n$5\r\nhello\r\n"
	require.NoError(t, DecodeAlloc(reader(in), a, &tup))

	FreeReply(&tup, a)
	assert.Equal(t, before, a.Outstanding())
}
