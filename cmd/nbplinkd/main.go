// Command nbplinkd runs a standalone NBP relay node: it loads a YAML
// config (optionally overridden by flags), opens the configured
// transport, optionally tunes a rig and wires GPIO PTT keying and mDNS
// advertisement, and drives the node engine at a fixed tick rate until
// killed. This generalizes the teacher's cmd/direwolf/main.go
// flag-then-config startup sequence to NBP's own transport/PTT/rig/mDNS
// wiring.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/narrowband/nbplink/internal/config"
	"github.com/narrowband/nbplink/internal/hostlog"
	"github.com/narrowband/nbplink/internal/logrotate"
	"github.com/narrowband/nbplink/internal/mdns"
	"github.com/narrowband/nbplink/internal/nbp/address"
	"github.com/narrowband/nbplink/internal/nbp/frame"
	"github.com/narrowband/nbplink/internal/nbp/node"
	"github.com/narrowband/nbplink/internal/nbp/txqueue"
	"github.com/narrowband/nbplink/internal/ptt"
	"github.com/narrowband/nbplink/internal/rig"
	"github.com/narrowband/nbplink/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nbplinkd:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(*flags.ConfigFile)
	if err != nil {
		return err
	}
	flags.Overlay(cfg)

	callsign, ok := address.EncodeString(cfg.Callsign)
	if !ok {
		return fmt.Errorf("nbplinkd: bad callsign %q", cfg.Callsign)
	}

	if cfg.Rig.Enabled {
		if err := rig.Tune(cfg.Rig.Model, cfg.Rig.Device, cfg.Rig.FreqHz, cfg.Rig.ModeName); err != nil {
			return err
		}
	}

	raw, err := openTransport(cfg.Transport)
	if err != nil {
		return err
	}

	var tx ptt.Transport = raw
	if cfg.PTT.Enabled {
		keyer, err := ptt.Open(cfg.PTT.Chip, cfg.PTT.Line)
		if err != nil {
			return err
		}
		defer keyer.Close()

		tx = ptt.WrapTransport(raw, keyer)
	}

	if cfg.MDNS.Enabled && cfg.Transport.Kind == "tcp-listen" {
		errs := make(chan error, 1)

		adv, err := mdns.Announce(cfg.MDNS.Name, addrPort(cfg.Transport.Addr), errs)
		if err != nil {
			return err
		}
		defer adv.Stop()
	}

	traceOut, err := traceWriter(cfg.LogDir)
	if err != nil {
		return err
	}

	n := node.NewWithQueueOptions(callsign, queueOptions(cfg.Queue))
	n.Trace = hostlog.New(traceOut, callsign)

	tick := time.Duration(cfg.TickMs) * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	cb := node.Callbacks{
		Recv: func(f frame.Frame, payload []byte) {
			n.Trace(node.TraceInfo, "delivered", "prn", f.PRN, "bytes", len(payload))
		},
	}

	tickCb := node.TickCallbacks{
		Retry: func(f frame.Frame, payload []byte, nextMs int) {
			n.Trace(node.TraceWarn, "retrying", "prn", f.PRN, "next_ms", nextMs)
		},
		Expire: func(f frame.Frame, payload []byte) {
			n.Trace(node.TraceWarn, "expired", "prn", f.PRN)
		},
	}

	last := time.Now()
	for range ticker.C {
		now := time.Now()
		elapsed := int(now.Sub(last).Milliseconds())
		last = now

		if err := n.Recv(tx, cb); err != nil {
			return fmt.Errorf("nbplinkd: recv: %w", err)
		}

		if err := n.Tick(tx, elapsed, tickCb); err != nil {
			return fmt.Errorf("nbplinkd: tick: %w", err)
		}
	}

	return nil
}

func openTransport(t config.Transport) (transport.Transport, error) {
	switch t.Kind {
	case "serial":
		return transport.OpenSerial(t.Device, t.Baud)
	case "tcp-dial":
		return transport.DialTCP(t.Addr, 5*time.Second)
	case "tcp-listen":
		return transport.ListenTCP(t.Addr)
	case "pty":
		return transport.OpenPTY()
	default:
		return nil, fmt.Errorf("nbplinkd: unknown transport kind %q", t.Kind)
	}
}

// traceWriter returns where the node's trace log goes: stderr alone, or
// stderr plus a file under logDir when the config names one. The file is
// named for the startup date by logrotate's default per-day strftime
// pattern and is not switched to a new file while the daemon runs.
func traceWriter(logDir string) (io.Writer, error) {
	if logDir == "" {
		return os.Stderr, nil
	}

	f, err := logrotate.Open(logDir, logrotate.DefaultPattern, time.Now())
	if err != nil {
		return nil, fmt.Errorf("nbplinkd: open trace log: %w", err)
	}

	return io.MultiWriter(os.Stderr, f), nil
}

// queueOptions translates the config file's optional txqueue overrides
// into txqueue.Options; fields left at zero fall back to package
// defaults inside txqueue.NewWithOptions itself.
func queueOptions(q config.QueueOverrides) txqueue.Options {
	return txqueue.Options{
		BlockSize:      q.BlockSizeBytes,
		CongestControl: q.CongestControlB,
		RetryCount:     q.RetryCount,
		RetryDelayMs:   q.RetryDelayMs,
	}
}

func addrPort(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			var port int
			fmt.Sscanf(addr[i+1:], "%d", &port)
			return port
		}
	}

	return 0
}
