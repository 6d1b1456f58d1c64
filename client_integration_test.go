package resp_test

import (
	"bufio"
	"net"
	"testing"

	redigo "github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kynetiq/resp"
)

// scriptedServer accepts one connection per call to serveOnce, reads and
// discards exactly one command frame (using the library's own frame
// skipping, since any well-formed RESP array is acceptable input here), and
// writes back reply in response.
type scriptedServer struct {
	ln net.Listener
}

func newScriptedServer(t *testing.T) *scriptedServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &scriptedServer{ln: ln}
}

func (s *scriptedServer) addr() string { return s.ln.Addr().String() }

func (s *scriptedServer) close() { s.ln.Close() }

func (s *scriptedServer) serveOnce(t *testing.T, reply string) {
	t.Helper()
	conn, err := s.ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	var discard resp.Void
	require.NoError(t, resp.Decode(bufio.NewReader(conn), &discard))
	_, err = conn.Write([]byte(reply))
	require.NoError(t, err)
}

// roundTripCases are the literal wire scenarios this test drives through
// both this library's Client and redigo's independent client
// implementation, asserting the two agree on the decoded value.
var roundTripCases = []struct {
	name  string
	reply string
	want  any
}{
	{"integer", ":42\r\n", int64(42)},
	{"bulkString", "$5\r\nhello\r\n", "hello"},
	{"simpleString", "+PONG\r\n", "PONG"},
}

func TestClientInteroperatesWithRedigo(t *testing.T) {
	for _, tc := range roundTripCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := newScriptedServer(t)
			defer srv.close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				srv.serveOnce(t, tc.reply)
			}()

			conn, err := net.Dial("tcp", srv.addr())
			require.NoError(t, err)
			client, err := resp.NewClient(conn)
			require.NoError(t, err)
			defer client.Close()

			alloc := resp.NewAllocator()
			var got string
			require.NoError(t, client.SendAlloc(alloc, &got, "PING"))
			defer resp.FreeReply(&got, alloc)
			<-done
			assert.Equal(t, tc.want, coerce(got, tc.want))

			srv2 := newScriptedServer(t)
			defer srv2.close()

			done2 := make(chan struct{})
			go func() {
				defer close(done2)
				srv2.serveOnce(t, tc.reply)
			}()

			rc, err := redigo.Dial("tcp", srv2.addr())
			require.NoError(t, err)
			defer rc.Close()

			redigoReply, err := rc.Do("PING")
			require.NoError(t, err)
			<-done2
			assert.Equal(t, tc.want, coerceRedigo(redigoReply, tc.want))
		})
	}
}

// coerce adapts this library's decoded owned string (decoded with SendAlloc,
// since a string target accepts integer, bulk, and simple-string frames
// alike) to the test case's expected comparable type.
func coerce(got string, want any) any {
	switch want.(type) {
	case int64:
		var i int64
		for _, r := range got {
			i = i*10 + int64(r-'0')
		}
		return i
	default:
		return got
	}
}

func coerceRedigo(reply any, want any) any {
	switch v := reply.(type) {
	case []byte:
		s := string(v)
		if _, ok := want.(int64); ok {
			var i int64
			for _, r := range s {
				i = i*10 + int64(r-'0')
			}
			return i
		}
		return s
	case int64:
		return v
	default:
		return reply
	}
}
