package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

var errAlreadyBroken = errors.New("resp: client session already broken by a prior error")

// exportedFieldPtrs returns addressable pointers to dst's exported fields,
// in declaration order. dst must be a non-nil pointer to a struct.
func exportedFieldPtrs(dst any) ([]any, error) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, &ProtocolError{Msg: "Pipe/Trans target must be a pointer to a struct"}
	}
	elem := v.Elem()
	t := elem.Type()
	fields := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			fields = append(fields, elem.Field(i).Addr().Interface())
		}
	}
	return fields, nil
}

// Cmd is one command name plus its arguments, the unit Pipe/Trans take a
// sequence of.
type Cmd struct {
	Name string
	Args []Arg
}

// NewCmd builds a Cmd.
func NewCmd(name string, args ...Arg) Cmd { return Cmd{Name: name, Args: args} }

// Client owns a single byte-stream connection and is not safe for
// concurrent use: it is single-threaded and blocking by design, processing
// one Send/Pipe/Trans call at a time with no internal scheduling. A caller
// wanting concurrency uses multiple Clients (see the respool subpackage).
type Client struct {
	mu sync.Mutex

	rwc io.ReadWriteCloser
	br  *bufio.Reader
	enc *Encoder

	broken     bool
	wantHello3 bool

	log *zap.SugaredLogger
}

// ClientOpt configures optional Client behavior, following the teacher's
// functional-option pattern (DialOpt in conn.go).
type ClientOpt func(*Client)

// WithLogger attaches a logger that receives a warning each time a transport
// or decode error (a ProtocolError raised while decoding included) breaks the
// session. Transaction acknowledgement mismatches and Pipe field-count
// mismatches are returned without a log entry. With a nil logger, the
// default, the Client never logs.
func WithLogger(log *zap.SugaredLogger) ClientOpt {
	return func(c *Client) { c.log = log }
}

// WithHello3 causes NewClient to issue `HELLO 3` on the connection before
// returning, opting into RESP3 replies. The core protocol handling is the
// same either way; this only affects what the server chooses to send back.
func WithHello3() ClientOpt {
	return func(c *Client) { c.wantHello3 = true }
}

// NewClient wraps an already-established connection. rwc should not be used
// outside of the Client afterward.
func NewClient(rwc io.ReadWriteCloser, opts ...ClientOpt) (*Client, error) {
	c := &Client{
		rwc: rwc,
		br:  bufio.NewReader(rwc),
		enc: NewEncoder(rwc),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.wantHello3 {
		var void Void
		if err := c.Send(&void, "HELLO", StrArg("3")); err != nil {
			c.rwc.Close()
			return nil, fmt.Errorf("resp: HELLO 3 probe failed: %w", err)
		}
	}
	return c, nil
}

// Close releases the underlying connection. It does not affect any
// previously decoded value.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rwc.Close()
}

func (c *Client) fail(err error) error {
	c.broken = true
	wrapped := &ConnectionBroken{Err: err}
	if c.log != nil {
		c.log.Warnw("resp: connection broken", "error", err)
	}
	return wrapped
}

// Send writes a single command and decodes exactly one reply into dst using
// the non-allocating decoder.
func (c *Client) Send(dst any, cmdName string, args ...Arg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return &ConnectionBroken{Err: errAlreadyBroken}
	}
	if err := c.enc.WriteCommand(cmdName, args...); err != nil {
		return c.fail(err)
	}
	if err := c.enc.Flush(); err != nil {
		return c.fail(err)
	}
	if err := Decode(c.br, dst); err != nil {
		return c.classify(err)
	}
	return nil
}

// SendAlloc is Send using the allocating decoder.
func (c *Client) SendAlloc(a *Allocator, dst any, cmdName string, args ...Arg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return &ConnectionBroken{Err: errAlreadyBroken}
	}
	if err := c.enc.WriteCommand(cmdName, args...); err != nil {
		return c.fail(err)
	}
	if err := c.enc.Flush(); err != nil {
		return c.fail(err)
	}
	if err := DecodeAlloc(c.br, a, dst); err != nil {
		return c.classify(err)
	}
	return nil
}

// Pipe writes every cmd back-to-back, flushes once, and decodes exactly
// len(cmds) top-level replies into dst's successive exported fields, in
// wire order, using the non-allocating decoder for each.
func (c *Client) Pipe(dst any, cmds ...Cmd) error {
	return c.pipe(nil, dst, cmds, false)
}

// PipeAlloc is Pipe using the allocating decoder for every field.
func (c *Client) PipeAlloc(a *Allocator, dst any, cmds ...Cmd) error {
	return c.pipe(a, dst, cmds, true)
}

func (c *Client) pipe(a *Allocator, dst any, cmds []Cmd, allocating bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return &ConnectionBroken{Err: errAlreadyBroken}
	}

	fields, err := exportedFieldPtrs(dst)
	if err != nil {
		return err
	}
	if len(fields) != len(cmds) {
		return &ProtocolError{Msg: "Pipe: field count does not match command count"}
	}

	for _, cmd := range cmds {
		if err := c.enc.WriteCommand(cmd.Name, cmd.Args...); err != nil {
			return c.fail(err)
		}
	}
	if err := c.enc.Flush(); err != nil {
		return c.fail(err)
	}

	for _, fp := range fields {
		var derr error
		if allocating {
			derr = DecodeAlloc(c.br, a, fp)
		} else {
			derr = Decode(c.br, fp)
		}
		if derr != nil {
			return c.classify(derr)
		}
	}
	return nil
}

// Trans wraps cmds in MULTI/EXEC. It writes MULTI, every cmd, then EXEC,
// flushes once, consumes the MULTI acknowledgement and each QUEUED
// acknowledgement (a protocol error if any of those deviate from +OK /
// +QUEUED), then decodes the final EXEC aggregate reply into dst using the
// non-allocating decoder. dst should wrap a Tuple in OrErr (OrFullErr needs
// TransAlloc), since EXEC can fail the whole transaction atomically.
func (c *Client) Trans(dst any, cmds ...Cmd) error {
	return c.trans(nil, dst, cmds, false)
}

// TransAlloc is Trans using the allocating decoder for the final aggregate.
func (c *Client) TransAlloc(a *Allocator, dst any, cmds ...Cmd) error {
	return c.trans(a, dst, cmds, true)
}

func (c *Client) trans(a *Allocator, dst any, cmds []Cmd, allocating bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return &ConnectionBroken{Err: errAlreadyBroken}
	}

	if err := c.enc.WriteRaw("MULTI"); err != nil {
		return c.fail(err)
	}
	for _, cmd := range cmds {
		if err := c.enc.WriteCommand(cmd.Name, cmd.Args...); err != nil {
			return c.fail(err)
		}
	}
	if err := c.enc.WriteRaw("EXEC"); err != nil {
		return c.fail(err)
	}
	if err := c.enc.Flush(); err != nil {
		return c.fail(err)
	}

	if err := c.expectSimpleString("OK"); err != nil {
		return err
	}
	for range cmds {
		if err := c.expectSimpleString("QUEUED"); err != nil {
			return err
		}
	}

	var derr error
	if allocating {
		derr = DecodeAlloc(c.br, a, dst)
	} else {
		derr = Decode(c.br, dst)
	}
	if derr != nil {
		return c.classify(derr)
	}
	return nil
}

func (c *Client) expectSimpleString(want string) error {
	s := NewFixBuf(len(want) + 1)
	if err := Decode(c.br, &s); err != nil {
		switch err.(type) {
		case *ServerError, *UnexpectedNil, *UnexpectedTag, *BufferTooSmall:
			c.broken = true
			return &ProtocolError{Msg: "transaction acknowledgement was not +" + want + ": " + err.Error()}
		}
		return c.classify(err)
	}
	if s.String() != want {
		c.broken = true
		return &ProtocolError{Msg: "transaction acknowledgement was " + s.String() + ", expected " + want}
	}
	return nil
}

// classify distinguishes the two decode errors the decoder guarantees leave
// the frame fully consumed (ServerError, UnexpectedNil), which don't break
// the session, from every other decode or transport error, which does.
func (c *Client) classify(err error) error {
	switch err.(type) {
	case *ServerError, *UnexpectedNil:
		return err
	default:
		c.broken = true
		if c.log != nil {
			c.log.Warnw("resp: connection broken", "error", err)
		}
		return &ConnectionBroken{Err: err}
	}
}
