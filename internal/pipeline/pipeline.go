// Package pipeline implements the four-stage connection pipeline: an
// acceptor that owns the listening socket, an ingress stage that frames
// incoming requests off each live connection, a fixed pool of worker
// goroutines that invoke the handler, and an egress stage that frames and
// writes responses back. The acceptor, ingress, and egress stages share the
// connection registry (internal/connreg); the workers never touch it. All
// four goroutine groups are supervised together with
// golang.org/x/sync/errgroup.
//
// Two deviations are deliberate: the worker pool is fed directly off the
// incoming channel, so a burst of requests beyond worker capacity blocks
// upstream delivery rather than being dropped; and the store's per-parent
// keyed mutex (internal/store) serializes concurrent AddEntry calls under
// the same parent.
package pipeline

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osakka/messageboard/internal/connreg"
	"github.com/osakka/messageboard/internal/handler"
	"github.com/osakka/messageboard/internal/logger"
	"github.com/osakka/messageboard/internal/wire"
)

const (
	// lengthPrefixBytes is the width of the frame length prefix: every
	// request and response is preceded by an 8-byte little-endian u64
	// length.
	lengthPrefixBytes = 8

	// maxFrameBytes bounds how large a single framed payload may be before
	// the ingress stage refuses it outright, guarding against a malicious
	// or corrupt length prefix forcing an enormous allocation. The wire
	// format itself permits string/sequence lengths up to 2^32-1; this cap
	// is a deliberate, narrower DoS guard at the transport layer, and a
	// legitimate payload that size is expected to fail rather than be
	// buffered in full.
	maxFrameBytes = 64 << 20 // 64 MiB

	// ingressPollInterval is how often the ingress stage re-scans its
	// connections for a fresh length prefix.
	ingressPollInterval = 2 * time.Millisecond

	// peekTimeout bounds how long a single peek attempt waits for the
	// 8-byte length prefix to become available before the ingress stage
	// moves on to the next connection. If fewer than 8 bytes are
	// available, the connection is skipped this cycle.
	peekTimeout = 1 * time.Millisecond
)

// DefaultWorkers is the worker pool size used when not overridden.
const DefaultWorkers = 4

type inFlight struct {
	id  connreg.ConnID
	req wire.Request
}

type outFlight struct {
	id   connreg.ConnID
	resp wire.Response
	err  error
}

type connInfo struct {
	id   connreg.ConnID
	conn net.Conn
}

type frameResult struct {
	id     connreg.ConnID
	closed bool
}

// Pipeline wires the acceptor, ingress, worker pool, and egress stages
// together around a single listener and handler.
type Pipeline struct {
	listener net.Listener
	handler  *handler.Handler
	registry *connreg.Registry
	workers  int

	newConns  chan connInfo
	incoming  chan inFlight
	outgoing  chan outFlight
	frameDone chan frameResult
}

// New returns a Pipeline that accepts connections on listener and serves
// them against h with the given worker pool size (DefaultWorkers if n<=0).
func New(listener net.Listener, h *handler.Handler, n int) *Pipeline {
	if n <= 0 {
		n = DefaultWorkers
	}
	return &Pipeline{
		listener:  listener,
		handler:   h,
		registry:  connreg.New(),
		workers:   n,
		newConns:  make(chan connInfo),
		incoming:  make(chan inFlight),
		outgoing:  make(chan outFlight),
		frameDone: make(chan frameResult),
	}
}

// Run starts all pipeline stages and blocks until ctx is cancelled or one
// of the stages returns a fatal error, in which case the others are
// cancelled in turn (errgroup.WithContext propagation).
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.acceptLoop(ctx) })
	g.Go(func() error { return p.ingressLoop(ctx) })
	g.Go(func() error { return p.egressLoop(ctx) })
	for i := 0; i < p.workers; i++ {
		g.Go(func() error { return p.workerLoop(ctx) })
	}

	go func() {
		<-ctx.Done()
		p.listener.Close()
	}()

	return g.Wait()
}

func (p *Pipeline) acceptLoop(ctx context.Context) error {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		id := p.registry.Register(conn)
		logger.Debug("accepted connection %s", id)

		select {
		case p.newConns <- connInfo{id: id, conn: conn}:
		case <-ctx.Done():
			return nil
		}
	}
}

// ingressLoop owns the single "which connections have a frame ready" scan.
// Reading the body of a discovered frame is handed off to a short-lived
// goroutine per connection so one slow sender can't stall the scan of
// every other connection; busy tracks which connections currently have
// such a read in flight so the scan never starts two reads on the same
// reader concurrently.
func (p *Pipeline) ingressLoop(ctx context.Context) error {
	readers := make(map[connreg.ConnID]*bufio.Reader)
	busy := make(map[connreg.ConnID]bool)

	ticker := time.NewTicker(ingressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case info := <-p.newConns:
			readers[info.id] = bufio.NewReaderSize(info.conn, lengthPrefixBytes)

		case res := <-p.frameDone:
			delete(busy, res.id)
			if res.closed {
				delete(readers, res.id)
			}

		case <-ticker.C:
			for id, r := range readers {
				if busy[id] {
					continue
				}
				conn, ok := p.registry.Lookup(id)
				if !ok {
					delete(readers, id)
					continue
				}

				if err := conn.SetReadDeadline(time.Now().Add(peekTimeout)); err != nil {
					p.drop(id, conn)
					delete(readers, id)
					continue
				}

				header, err := r.Peek(lengthPrefixBytes)
				if err != nil {
					var netErr net.Error
					if errors.As(err, &netErr) && netErr.Timeout() {
						continue
					}
					p.drop(id, conn)
					delete(readers, id)
					continue
				}

				length := binary.LittleEndian.Uint64(header)
				if length > maxFrameBytes {
					p.drop(id, conn)
					delete(readers, id)
					continue
				}

				busy[id] = true
				go p.readFrame(ctx, id, conn, r, length)
			}
		}
	}
}

// readFrame reads and decodes a single frame, then reports exactly one
// frameResult for id: closed on any I/O failure (the connection is gone),
// otherwise open. signaled guards against the two code paths (an explicit
// early return and the deferred report) both sending for the same call.
func (p *Pipeline) readFrame(ctx context.Context, id connreg.ConnID, conn net.Conn, r *bufio.Reader, length uint64) {
	signaled := false
	defer func() {
		if !signaled {
			select {
			case p.frameDone <- frameResult{id: id}:
			case <-ctx.Done():
			}
		}
	}()

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		p.drop(id, conn)
		p.signalClosed(ctx, id)
		signaled = true
		return
	}

	frame := make([]byte, lengthPrefixBytes+length)
	if _, err := io.ReadFull(r, frame); err != nil {
		p.drop(id, conn)
		p.signalClosed(ctx, id)
		signaled = true
		return
	}

	req, err := wire.DecodeRequest(frame[lengthPrefixBytes:])
	if err != nil {
		// Malformed frames are discarded silently; the client sees no
		// response and must time out or retry.
		logger.Debug("discarding malformed frame from %s: %v", id, err)
		return
	}

	select {
	case p.incoming <- inFlight{id: id, req: req}:
	case <-ctx.Done():
	}
}

func (p *Pipeline) signalClosed(ctx context.Context, id connreg.ConnID) {
	select {
	case p.frameDone <- frameResult{id: id, closed: true}:
	case <-ctx.Done():
	}
}

// workerLoop is one member of the fixed worker pool. Reading directly off
// the shared incoming channel (rather than through a dispatcher that
// assigns per-worker slots and drops overflow) gives the required
// backpressure for free: once every worker is mid-request, the channel
// send in readFrame simply blocks until one frees up.
func (p *Pipeline) workerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case work := <-p.incoming:
			resp, err := p.handler.Handle(work.req)
			select {
			case p.outgoing <- outFlight{id: work.id, resp: resp, err: err}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *Pipeline) egressLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-p.outgoing:
			conn, ok := p.registry.Lookup(out.id)
			if !ok {
				// Connection gone; the response is discarded.
				continue
			}

			payload, err := wire.EncodeResponse(out.resp, out.err)
			if err != nil {
				logger.Warn("encode response for %s: %v", out.id, err)
				continue
			}

			frame := make([]byte, lengthPrefixBytes+len(payload))
			binary.LittleEndian.PutUint64(frame, uint64(len(payload)))
			copy(frame[lengthPrefixBytes:], payload)

			if _, err := conn.Write(frame); err != nil {
				p.drop(out.id, conn)
			}
		}
	}
}

func (p *Pipeline) drop(id connreg.ConnID, conn net.Conn) {
	p.registry.Unregister(id)
	conn.Close()
}
