package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteCommand("SET", StrArg("key"), StrArg("42")))
	require.NoError(t, e.Flush())
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$2\r\n42\r\n", buf.String())
}

func TestEncoderWriteCommandNumericAndBoolArgs(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteCommand("CONFIG", IntArg(7), FloatArg(2.5), BoolArg(true)))
	require.NoError(t, e.Flush())
	assert.Equal(t, "*4\r\n$6\r\nCONFIG\r\n$1\r\n7\r\n$3\r\n2.5\r\n$1\r\n1\r\n", buf.String())
}

func TestEncoderWriteRaw(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.WriteRaw("MULTI"))
	require.NoError(t, e.Flush())
	assert.Equal(t, "*1\r\n$5\r\nMULTI\r\n", buf.String())
}

func TestArgFromScalars(t *testing.T) {
	a, err := ArgFrom("hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), a.b)

	a, err = ArgFrom(int64(9))
	require.NoError(t, err)
	assert.Equal(t, []byte("9"), a.b)
}

func TestArgFromRejectsStructuredValues(t *testing.T) {
	_, err := ArgFrom([]string{"a", "b"})
	require.Error(t, err)

	_, err = ArgFrom(map[string]int{"a": 1})
	require.Error(t, err)
}
