package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDynamicReplyRoundTrip encodes a DynamicReply tree covering every
// variant back to wire bytes with ReplyEncoder, decodes it again, and
// checks the result matches the original tree.
func TestDynamicReplyRoundTrip(t *testing.T) {
	orig := DynamicReply{
		Kind: ReplyList,
		List: []DynamicReply{
			{Kind: ReplyNumber, Number: 42},
			{Kind: ReplyString, Str: []byte("hello")},
			{Kind: ReplyBool, Bool: true},
			{Kind: ReplyDouble, Double: 3.5},
			{Kind: ReplyBigNumber, BigNumber: []byte("1234567890123456789012345")},
			{Kind: ReplyNil},
			{Kind: ReplyErr, ErrCode: "ERR", ErrMsg: "ERR boom"},
			{
				Kind: ReplySet,
				Set: []DynamicReply{
					{Kind: ReplyNumber, Number: 1},
					{Kind: ReplyNumber, Number: 2},
				},
			},
			{
				Kind: ReplyMap,
				Map: []KV[DynamicReply, DynamicReply]{
					{Key: DynamicReply{Kind: ReplyString, Str: []byte("k")}, Value: DynamicReply{Kind: ReplyNumber, Number: 9}},
				},
			},
		},
	}

	var buf bytes.Buffer
	enc := NewReplyEncoder(&buf)
	require.NoError(t, enc.WriteReply(&orig))
	require.NoError(t, enc.Flush())

	a := NewAllocator()
	var got DynamicReply
	require.NoError(t, DecodeAlloc(reader(buf.String()), a, &got))
	defer FreeReply(&got, a)

	require.Equal(t, ReplyList, got.Kind)
	require.Len(t, got.List, len(orig.List))

	assert.Equal(t, ReplyNumber, got.List[0].Kind)
	assert.Equal(t, int64(42), got.List[0].Number)

	assert.Equal(t, ReplyString, got.List[1].Kind)
	assert.Equal(t, "hello", string(got.List[1].Str))

	assert.Equal(t, ReplyBool, got.List[2].Kind)
	assert.True(t, got.List[2].Bool)

	assert.Equal(t, ReplyDouble, got.List[3].Kind)
	assert.InDelta(t, 3.5, got.List[3].Double, 0.0001)

	assert.Equal(t, ReplyBigNumber, got.List[4].Kind)
	assert.Equal(t, "1234567890123456789012345", string(got.List[4].BigNumber))

	assert.Equal(t, ReplyNil, got.List[5].Kind)

	assert.Equal(t, ReplyErr, got.List[6].Kind)
	assert.Equal(t, "ERR", got.List[6].ErrCode)
	assert.Equal(t, "ERR boom", got.List[6].ErrMsg)

	require.Equal(t, ReplySet, got.List[7].Kind)
	require.Len(t, got.List[7].Set, 2)
	assert.Equal(t, int64(1), got.List[7].Set[0].Number)
	assert.Equal(t, int64(2), got.List[7].Set[1].Number)

	require.Equal(t, ReplyMap, got.List[8].Kind)
	require.Len(t, got.List[8].Map, 1)
	assert.Equal(t, "k", string(got.List[8].Map[0].Key.Str))
	assert.Equal(t, int64(9), got.List[8].Map[0].Value.Number)
}
