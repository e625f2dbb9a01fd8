// Package ptt keys a radio's push-to-talk line over a Linux GPIO
// character device around every node transmit, generalizing the
// teacher's RTS/DTR and CM108-GPIO keying in ptt.go/cm108.go (which toggle
// a serial control line or a USB sound-card's GPIO pins directly) to the
// modern gpiod character-device interface via
// github.com/warthog618/go-gpiocdev — a dependency the teacher declares
// but never imports.
package ptt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Controller keys and unkeys a transmitter around a single transmission.
// Both Keyer and NopKeyer implement it, so cmd/nbplinkd can wire the same
// call site whether or not PTT is configured.
type Controller interface {
	Around(fn func() error) error
}

// Keyer asserts and releases a single GPIO line used as a PTT signal.
type Keyer struct {
	line *gpiocdev.Line
}

// Open requests line on chip (e.g. "gpiochip0") as an output, initially
// de-asserted.
func Open(chip string, line int) (*Keyer, error) {
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("ptt: request %s line %d: %w", chip, line, err)
	}

	return &Keyer{line: l}, nil
}

// Key asserts PTT (keys the transmitter).
func (k *Keyer) Key() error {
	return k.line.SetValue(1)
}

// Unkey releases PTT.
func (k *Keyer) Unkey() error {
	return k.line.SetValue(0)
}

// Close releases the GPIO line request.
func (k *Keyer) Close() error {
	return k.line.Close()
}

// Around keys PTT, runs fn, then unkeys PTT regardless of fn's outcome —
// the shape every node transmit (initial send, forward, ack, retry) is
// wrapped in by cmd/nbplinkd.
func (k *Keyer) Around(fn func() error) error {
	if err := k.Key(); err != nil {
		return err
	}
	defer k.Unkey()

	return fn()
}

// NopKeyer is a Keyer-shaped no-op for nodes configured without PTT.
type NopKeyer struct{}

// Around just runs fn.
func (NopKeyer) Around(fn func() error) error { return fn() }

// Transport is the minimal byte carrier WrapTransport wraps; it matches
// internal/transport.Transport and node.Transport structurally so no
// import of either package is needed here.
type Transport interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) error
}

// keyedTransport keys PTT around every Write, leaving Read untouched —
// the node only ever transmits via Write, so that's the only call site
// that needs to key the radio.
type keyedTransport struct {
	Transport
	ctl Controller
}

// WrapTransport decorates t so every Write is bracketed by ctl.Around,
// covering every frame the node transmits: initial send, forwarded
// frame, ack, and retry all go through the same Write.
func WrapTransport(t Transport, ctl Controller) Transport {
	return &keyedTransport{Transport: t, ctl: ctl}
}

func (k *keyedTransport) Write(buf []byte) error {
	return k.ctl.Around(func() error {
		return k.Transport.Write(buf)
	})
}
