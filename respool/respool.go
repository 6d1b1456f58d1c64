// Package respool is a thin, round-robin helper for holding open several
// Client sessions to the same address. It is explicitly not a connection
// pool in the sense the core library's Non-goals exclude: there is no
// borrow/return protocol or health checking, just a fixed-size ring of
// exclusively-owned sessions handed out one at a time, matching spec.md's
// "a caller wanting parallelism uses multiple sessions" guidance.
package respool

import (
	"sync"
	"sync/atomic"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"

	"github.com/kynetiq/resp"
)

// Pool holds a fixed number of Client sessions dialed against one address,
// each with SO_REUSEPORT set so that many short-lived Pools (e.g. one per
// test, or one per worker in a larger harness) can dial the same local
// address without exhausting ephemeral ports.
type Pool struct {
	clients []*resp.Client
	next    uint64

	mu     sync.Mutex
	closed bool
}

// New dials size connections to network/addr, wrapping each as a
// resp.Client with opts applied.
func New(network, addr string, size int, opts ...resp.ClientOpt) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{clients: make([]*resp.Client, 0, size)}
	for i := 0; i < size; i++ {
		conn, err := reuseport.Dial(network, "", addr)
		if err != nil {
			p.Close()
			return nil, err
		}
		c, err := resp.NewClient(conn, opts...)
		if err != nil {
			conn.Close()
			p.Close()
			return nil, err
		}
		p.clients = append(p.clients, c)
	}
	return p, nil
}

// Get returns the next Client in round-robin order. The caller owns it
// exclusively for the duration of its use; Pool does no borrow/return
// bookkeeping, so concurrent callers must not pick the same index's
// Client concurrently (use a Pool sized at least as large as your
// goroutine count to avoid that).
func (p *Pool) Get() *resp.Client {
	i := atomic.AddUint64(&p.next, 1) - 1
	return p.clients[int(i)%len(p.clients)]
}

// Len returns the number of Clients held by the pool.
func (p *Pool) Len() int { return len(p.clients) }

// Close closes every held Client, aggregating any close errors with
// multierr rather than stopping at the first failure.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	for _, c := range p.clients {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close())
	}
	return err
}
