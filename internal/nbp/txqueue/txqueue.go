// Package txqueue implements NBP's bounded outbox of unacknowledged
// frames: enqueue on send, remove on ack, and a periodic tick that
// retries or expires entries with randomized backoff and congestion
// control.
package txqueue

import (
	"errors"
	"math/rand"

	"github.com/narrowband/nbplink/internal/nbp/frame"
)

// MaxPacket is the nominal maximum number of packets in flight. Enqueue
// does not check it; the queue is bounded by BlockSize only.
const MaxPacket = 256

// BlockSize is the default hard cap on total buffered payload bytes.
const BlockSize = 50 * 1024

// CongestControl is the default buffered-byte threshold above which
// entries being retried this tick are discarded immediately afterward.
const CongestControl = 35 * 1024

// RetryCount is the default number of times a packet is retried before
// it expires.
const RetryCount = 4

// RetryDelayMs is the default base resend interval; actual delay grows
// with retry count and random jitter so two transmitters don't collide.
const RetryDelayMs = 500

// ErrDiscarded is returned from Enqueue when the shared payload buffer
// would exceed the queue's BlockSize.
var ErrDiscarded = errors.New("txqueue: congestion control, packet discarded")

// Options lets a host retune the queue's constants (e.g. from a config
// file) instead of recompiling. NewWithOptions replaces any field left
// at zero with the matching package default, so a zero Options yields
// the defaults and a host sets only the fields that need to change.
type Options struct {
	BlockSize      int
	CongestControl int
	RetryCount     int
	RetryDelayMs   int
}

// DefaultOptions returns the package's normative constants (spec.md §6)
// as an Options value ready to override selectively.
func DefaultOptions() Options {
	return Options{
		BlockSize:      BlockSize,
		CongestControl: CongestControl,
		RetryCount:     RetryCount,
		RetryDelayMs:   RetryDelayMs,
	}
}

type pendingPacket struct {
	packet     frame.Frame
	nextSend   int
	retryCount int
	dataOffset int
	dataSize   int
}

// Queue is the transmit queue for one node: a list of unacked frames plus
// a single shared byte buffer holding their payloads.
type Queue struct {
	opts    Options
	pending []pendingPacket
	data    []byte
}

// New creates an empty transmit queue using the package's default
// constants.
func New() *Queue {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an empty transmit queue tuned by opts. Any
// field left at zero falls back to the matching package default, so a
// host can override only the fields it cares about.
func NewWithOptions(opts Options) *Queue {
	d := DefaultOptions()

	if opts.BlockSize <= 0 {
		opts.BlockSize = d.BlockSize
	}
	if opts.CongestControl <= 0 {
		opts.CongestControl = d.CongestControl
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = d.RetryCount
	}
	if opts.RetryDelayMs <= 0 {
		opts.RetryDelayMs = d.RetryDelayMs
	}

	return &Queue{opts: opts}
}

// Enqueue records header as awaiting an ack, alongside its payload,
// called just before the frame is first written to the transport.
func (q *Queue) Enqueue(header frame.Frame, payload []byte) error {
	if len(q.data)+len(payload) > q.opts.BlockSize {
		return ErrDiscarded
	}

	dataStart := len(q.data)
	q.data = append(q.data, payload...)

	q.pending = append(q.pending, pendingPacket{
		packet:     header,
		nextSend:   q.opts.RetryDelayMs,
		retryCount: 0,
		dataOffset: dataStart,
		dataSize:   len(payload),
	})

	return nil
}

// AckRecv removes the pending entry matching prn, if any, reporting
// whether one was found.
func (q *Queue) AckRecv(prn uint32) bool {
	for i, p := range q.pending {
		if p.packet.PRN == prn {
			q.discard(i)
			return true
		}
	}

	return false
}

// PendingPackets returns the number of frames currently awaiting an ack.
func (q *Queue) PendingPackets() int {
	return len(q.pending)
}

// Tick advances every pending entry's clock by elapsedMs. Entries whose
// deadline has passed are retried (unless they've already exhausted
// RetryCount) and then discarded if they've now exceeded RetryCount or if
// the buffer is over CongestControl — discarding after the retry so the
// current radio opportunity isn't wasted. retry is invoked with the
// entry's recomputed next-send delay; if it returns an error, Tick stops
// and propagates it immediately, leaving the remaining entries untouched
// for the next call.
func (q *Queue) Tick(elapsedMs int, retry func(f frame.Frame, payload []byte, nextSendMs int) error, discard func(f frame.Frame, payload []byte)) error {
	idx := 0
	for idx < len(q.pending) {
		p := &q.pending[idx]

		if p.nextSend > elapsedMs {
			p.nextSend -= elapsedMs
			idx++
			continue
		}

		willDiscard := p.retryCount >= q.opts.RetryCount || len(q.data) > q.opts.CongestControl
		willRetry := p.retryCount < q.opts.RetryCount

		if willRetry {
			// Pre-increment: a packet that can't be sent still counts
			// against its retry budget, so a stuck transport can't hang
			// the queue forever.
			p.retryCount++

			rnd := rand.Float32()
			nextSend := int((1.0 + float32(p.retryCount)*rnd) * float32(q.opts.RetryDelayMs))
			p.nextSend = nextSend

			if err := retry(p.packet, q.packetData(p), nextSend); err != nil {
				return err
			}
		}

		if willDiscard {
			discard(p.packet, q.packetData(p))
			q.discard(idx)
		} else {
			idx++
		}
	}

	return nil
}

func (q *Queue) packetData(p *pendingPacket) []byte {
	return q.data[p.dataOffset : p.dataOffset+p.dataSize]
}

func (q *Queue) discard(idx int) {
	dataStart := q.pending[idx].dataOffset
	dataEnd := dataStart + q.pending[idx].dataSize

	q.data = append(q.data[:dataStart], q.data[dataEnd:]...)
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)

	removed := dataEnd - dataStart
	for i := range q.pending {
		if q.pending[i].dataOffset >= dataEnd {
			q.pending[i].dataOffset -= removed
		}
	}
}
