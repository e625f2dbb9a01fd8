// Package node implements the NBP relay node engine: send, recv, and tick
// orchestration over an injected byte transport, dispatching frames by
// routing role and invoking host callbacks.
package node

import (
	"bytes"
	"errors"

	"github.com/narrowband/nbplink/internal/nbp/frame"
	"github.com/narrowband/nbplink/internal/nbp/kiss"
	"github.com/narrowband/nbplink/internal/nbp/prn"
	"github.com/narrowband/nbplink/internal/nbp/prntable"
	"github.com/narrowband/nbplink/internal/nbp/routing"
	"github.com/narrowband/nbplink/internal/nbp/txqueue"
)

// Transport is the minimal byte-in/byte-out interface the node requires.
// Read may return 0 with a nil error to mean "no data available right
// now"; the node treats that as end-of-work for the current Recv call,
// not end-of-stream.
type Transport interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) error
}

// TraceLevel classifies a structured trace event emitted by the node.
// The core takes no logging dependency itself; Trace is an optional
// injected callback a host can wire to its own logger.
type TraceLevel int

// Trace levels, from least to most severe.
const (
	TraceDebug TraceLevel = iota
	TraceInfo
	TraceWarn
)

// Errors returned by node operations.
var (
	ErrPayloadTooLarge = errors.New("node: payload exceeds MTU")
)

// Node is one NBP station. It owns no transport; every method takes one
// as a parameter, borrowed for the duration of the call. A Node is not
// safe for concurrent use: Send, Recv, and Tick must not run
// concurrently against the same Node.
type Node struct {
	callsign uint32

	gen   *prn.Generator
	seen  *prntable.Table
	queue *txqueue.Queue

	rxRaw   []byte
	kissOut []byte

	Trace func(level TraceLevel, msg string, fields ...any)
}

// New creates a Node for the given station callsign, using the package
// defaults for its transmit-queue backoff/congestion constants.
func New(callsign uint32) *Node {
	return NewWithQueueOptions(callsign, txqueue.DefaultOptions())
}

// NewWithQueueOptions creates a Node whose transmit queue is tuned by
// opts instead of txqueue's package defaults, letting a host retune
// retry/backoff/congestion behavior (e.g. from a config file) without
// recompiling.
func NewWithQueueOptions(callsign uint32, opts txqueue.Options) *Node {
	return &Node{
		callsign: callsign,
		gen:      prn.New(callsign),
		seen:     prntable.New(prntable.DefaultCapacity),
		queue:    txqueue.NewWithOptions(opts),
	}
}

// Callsign returns the station address this node was constructed with.
func (n *Node) Callsign() uint32 {
	return n.callsign
}

// PendingPackets returns the number of outbound frames currently
// awaiting an ack.
func (n *Node) PendingPackets() int {
	return n.queue.PendingPackets()
}

func (n *Node) trace(level TraceLevel, msg string, fields ...any) {
	if n.Trace != nil {
		n.Trace(level, msg, fields...)
	}
}

// Send submits payload for delivery along route (the remaining forward
// path, not including this node). It builds the full route by appending
// a separator and this node's own callsign as the return-path origin,
// assigns a fresh PRN, enqueues the frame for retry, and writes it to
// transport. It returns the assigned PRN.
func (n *Node) Send(transport Transport, payload []byte, route []uint32) (uint32, error) {
	if len(payload) > frame.MTU {
		return 0, ErrPayloadTooLarge
	}

	dest := make([]uint32, 0, len(route)+2)
	dest = append(dest, route...)
	dest = append(dest, routing.Separator, n.callsign)

	hdr, err := frame.NewHeader(n.gen, dest)
	if err != nil {
		return 0, err
	}

	if err := n.queue.Enqueue(hdr, payload); err != nil {
		return 0, err
	}

	if err := n.transmit(transport, hdr, payload); err != nil {
		return 0, err
	}

	n.trace(TraceDebug, "sent frame", "prn", hdr.PRN, "route", routing.FormatRoute(hdr.AddressRoute))

	return hdr.PRN, nil
}

// transmit serializes f+payload to NBP bytes, KISS-wraps it, and writes
// the result whole to transport: a frame is never partially written.
func (n *Node) transmit(transport Transport, f frame.Frame, payload []byte) error {
	var nbpBuf bytes.Buffer
	if _, err := frame.ToBytes(&nbpBuf, f, payload); err != nil {
		return err
	}

	n.kissOut = kiss.Encode(nbpBuf.Bytes(), n.kissOut[:0], 0)

	return transport.Write(n.kissOut)
}

// Callbacks groups the host-facing events Recv may invoke. Each call to
// Recv takes a fresh Callbacks value; the node never stores callbacks
// across calls.
type Callbacks struct {
	// Recv fires when a frame terminating at this node is delivered for
	// the first time (including an ack for one of our own sends).
	Recv func(f frame.Frame, payload []byte)
	// Observe fires for every successfully decoded frame, including
	// ones destined elsewhere, enabling promiscuous monitoring.
	Observe func(f frame.Frame, payload []byte)
}

const readChunk = 256

// Recv drains available bytes from transport, decoding and dispatching
// as many complete frames as are present. It returns when transport.Read
// reports 0 bytes available. KISS-layer errors (stray bytes, empty
// frames, bad escapes) are silently absorbed; NBP-layer parse errors are
// traced and skipped without being delivered to any callback, but the
// consumed bytes are always drained from the rolling buffer first so a
// single corrupt frame can't livelock the receiver.
func (n *Node) Recv(transport Transport, cb Callbacks) error {
	buf := make([]byte, readChunk)

	for {
		rn, err := transport.Read(buf)
		if err != nil {
			return err
		}
		if rn == 0 {
			return nil
		}

		n.rxRaw = append(n.rxRaw, buf[:rn]...)

		for {
			decoded, rest, ok := kiss.Decode(n.rxRaw, n.kissOut[:0])
			if !ok {
				break
			}

			n.kissOut = rest
			n.rxRaw = n.rxRaw[decoded.BytesRead:]

			if err := n.dispatch(transport, n.kissOut, cb); err != nil {
				return err
			}
		}
	}
}

func (n *Node) dispatch(transport Transport, nbp []byte, cb Callbacks) error {
	var payload [frame.MTU]byte

	f, payloadSize, err := frame.FromBytes(bytes.NewReader(nbp), payload[:], len(nbp))
	if err != nil {
		n.trace(TraceWarn, "dropped frame", "err", err.Error())
		return nil
	}

	q := payload[:payloadSize]

	if err := n.handle(transport, f, q, cb); err != nil {
		return err
	}

	if cb.Observe != nil {
		cb.Observe(f, q)
	}

	return nil
}

func (n *Node) handle(transport Transport, f frame.Frame, q []byte, cb Callbacks) error {
	route := f.AddressRoute

	if !routing.IsDestination(route, n.callsign) {
		return nil
	}

	if !routing.FinalAddr(route) {
		return n.forward(transport, f, q)
	}

	if len(q) == 0 {
		// Zero-payload frame at the final hop: an ack for one of our
		// own sends.
		n.queue.AckRecv(f.PRN)
		if cb.Recv != nil {
			cb.Recv(f, q)
		}
		return nil
	}

	// Data frame terminating here: ack it (unless it arrived via
	// broadcast, which has no single respondent), then deliver unless
	// it's a duplicate of one we've already handled.
	if !routing.IsBroadcast(route) {
		ack := frame.NewAck(f.PRN, routing.Reverse(route))
		if err := n.transmit(transport, ack, nil); err != nil {
			return err
		}
	}

	if n.seen.Contains(f.PRN) {
		n.trace(TraceDebug, "duplicate suppressed", "prn", f.PRN)
		return nil
	}

	n.seen.Add(f.PRN)
	if cb.Recv != nil {
		cb.Recv(f, q)
	}

	return nil
}

// forward advances route to the next hop and re-emits the frame with the
// same PRN. Intermediate hops never ack.
func (n *Node) forward(transport Transport, f frame.Frame, q []byte) error {
	newRoute, err := routing.Advance(f.AddressRoute, n.callsign)
	if err != nil {
		n.trace(TraceWarn, "forward failed", "err", err.Error())
		return nil
	}

	next := frame.Frame{PRN: f.PRN, AddressRoute: newRoute}

	if err := n.transmit(transport, next, q); err != nil {
		return err
	}

	n.trace(TraceDebug, "forwarded frame", "prn", f.PRN, "route", routing.FormatRoute(newRoute))

	return nil
}

// TickCallbacks groups the host-facing events Tick may invoke.
type TickCallbacks struct {
	Retry  func(f frame.Frame, payload []byte, nextRetryMs int)
	Expire func(f frame.Frame, payload []byte)
}

// Tick advances the transmit queue's retry clock by elapsedMs,
// retransmitting any frame whose deadline has passed and discarding any
// frame that has exhausted its retry budget or is being shed for
// congestion. A host drives Tick at a roughly fixed rate (e.g. 30 Hz).
func (n *Node) Tick(transport Transport, elapsedMs int, cb TickCallbacks) error {
	return n.queue.Tick(elapsedMs,
		func(f frame.Frame, payload []byte, nextSendMs int) error {
			if err := n.transmit(transport, f, payload); err != nil {
				return err
			}
			n.trace(TraceInfo, "retrying frame", "prn", f.PRN, "next_ms", nextSendMs)
			if cb.Retry != nil {
				cb.Retry(f, payload, nextSendMs)
			}
			return nil
		},
		func(f frame.Frame, payload []byte) {
			n.trace(TraceWarn, "expiring frame", "prn", f.PRN)
			if cb.Expire != nil {
				cb.Expire(f, payload)
			}
		},
	)
}
