package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(bytes.NewBufferString(s))
}

func TestDecodeVoid(t *testing.T) {
	var v Void
	require.NoError(t, Decode(reader("+OK\r\n"), &v))

	err := Decode(reader("-ERR boom\r\n"), &v)
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ERR", serr.Code)
}

func TestDecodeNumeric(t *testing.T) {
	var i int64
	require.NoError(t, Decode(reader(":42\r\n"), &i))
	assert.Equal(t, int64(42), i)

	var f float64
	require.NoError(t, Decode(reader(",3.5\r\n"), &f))
	assert.Equal(t, 3.5, f)

	var i8 int8
	err := Decode(reader(":1024\r\n"), &i8)
	var rerr *NumericRange
	require.ErrorAs(t, err, &rerr)
}

func TestDecodeBool(t *testing.T) {
	var b bool
	require.NoError(t, Decode(reader("#t\r\n"), &b))
	assert.True(t, b)
	require.NoError(t, Decode(reader("#f\r\n"), &b))
	assert.False(t, b)
	require.NoError(t, Decode(reader(":1\r\n"), &b))
	assert.True(t, b)
}

func TestDecodeFixBuf(t *testing.T) {
	fb := NewFixBuf(8)
	require.NoError(t, Decode(reader("$5\r\nhello\r\n"), &fb))
	assert.Equal(t, "hello", fb.String())

	small := NewFixBuf(2)
	err := Decode(reader("$5\r\nhello\r\n"), &small)
	var berr *BufferTooSmall
	require.ErrorAs(t, err, &berr)
}

func TestDecodeOptionalAbsent(t *testing.T) {
	var opt Optional[int64]
	require.NoError(t, Decode(reader("$-1\r\n"), &opt))
	_, ok := opt.Get()
	assert.False(t, ok)

	require.NoError(t, Decode(reader(":7\r\n"), &opt))
	v, ok := opt.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestDecodeOrErr(t *testing.T) {
	oe := NewOrErr[int64]()
	require.NoError(t, Decode(reader(":9\r\n"), &oe))
	v, ok := oe.Ok()
	assert.True(t, ok)
	assert.Equal(t, int64(9), v)

	oe = NewOrErr[int64]()
	require.NoError(t, Decode(reader("-ERR value is not an integer or out of range\r\n"), &oe))
	code, isErr := oe.Err()
	assert.True(t, isErr)
	assert.Equal(t, "ERR", code)

	oe = NewOrErr[int64]()
	require.NoError(t, Decode(reader("$-1\r\n"), &oe))
	assert.True(t, oe.IsNil())
}

func TestDecodeRecordFromFlatArray(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf  `resp:"banana"`
		Price  float32 `resp:"price"`
	}
	rec := hashRecord{Banana: NewFixBuf(32)}
	in := "*4\r\n$6\r\nbanana\r\n$10\r\nyes please\r\n$5\r\nprice\r\n$4\r\n9.99\r\n"
	require.NoError(t, Decode(reader(in), &rec))
	assert.Equal(t, "yes please", rec.Banana.String())
	assert.InDelta(t, 9.99, rec.Price, 0.001)
}

func TestDecodeRecordMissingField(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf `resp:"banana"`
		Price  int64  `resp:"price"`
	}
	rec := hashRecord{Banana: NewFixBuf(32)}
	in := "*2\r\n$6\r\nbanana\r\n$10\r\nyes please\r\n"
	err := Decode(reader(in), &rec)
	var merr *MissingField
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "price", merr.Name)
}

func TestDecodeRecordOptionalFieldDefaultsAbsent(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf         `resp:"banana"`
		Price  Optional[int64] `resp:"price"`
	}
	rec := hashRecord{Banana: NewFixBuf(32)}
	in := "*2\r\n$6\r\nbanana\r\n$10\r\nyes please\r\n"
	require.NoError(t, Decode(reader(in), &rec))
	_, ok := rec.Price.Get()
	assert.False(t, ok)
}

func TestDecodeRecordUnknownFieldTolerated(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf `resp:"banana"`
	}
	rec := hashRecord{Banana: NewFixBuf(32)}
	in := "*4\r\n$6\r\nbanana\r\n$10\r\nyes please\r\n$5\r\nextra\r\n$2\r\nhi\r\n"
	require.NoError(t, Decode(reader(in), &rec))
	assert.Equal(t, "yes please", rec.Banana.String())
}

func TestDecodeStrictRejectsUnknownField(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf `resp:"banana"`
	}
	strict := Strict[hashRecord]{Val: hashRecord{Banana: NewFixBuf(32)}}
	in := "*4\r\n$6\r\nbanana\r\n$10\r\nyes please\r\n$5\r\nextra\r\n$2\r\nhi\r\n"
	err := Decode(reader(in), &strict)
	var uerr *UnknownField
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "extra", uerr.Name)
}

func TestDecodeKV(t *testing.T) {
	var kv KV[int64, int64]
	require.NoError(t, Decode(reader("*2\r\n:1\r\n:2\r\n"), &kv))
	assert.Equal(t, int64(1), kv.Key)
	assert.Equal(t, int64(2), kv.Value)
}

func TestDecodeFixedArray(t *testing.T) {
	var arr [2]int64
	require.NoError(t, Decode(reader("*2\r\n:1\r\n:2\r\n"), &arr))
	assert.Equal(t, [2]int64{1, 2}, arr)
}

func TestDecodeUnexpectedNil(t *testing.T) {
	var i int64
	err := Decode(reader("$-1\r\n"), &i)
	var nerr *UnexpectedNil
	require.ErrorAs(t, err, &nerr)
}

func TestDecodeRecordUnexpectedNil(t *testing.T) {
	type hashRecord struct {
		Banana FixBuf `resp:"banana"`
	}
	rec := hashRecord{Banana: NewFixBuf(32)}
	err := Decode(reader("_\r\n"), &rec)
	var nerr *UnexpectedNil
	require.ErrorAs(t, err, &nerr)
}

func TestDecodeFixedArrayUnexpectedNil(t *testing.T) {
	var arr [2]int64
	err := Decode(reader("_\r\n"), &arr)
	var nerr *UnexpectedNil
	require.ErrorAs(t, err, &nerr)
}

func TestDecodeTupleUnexpectedNil(t *testing.T) {
	type agg struct {
		C1 int64
	}
	var tup Tuple[agg]
	err := Decode(reader("_\r\n"), &tup)
	var nerr *UnexpectedNil
	require.ErrorAs(t, err, &nerr)
}
