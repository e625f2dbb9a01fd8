// Command nbplink-pty exposes a single NBP node as a virtual KISS TNC
// over a pseudo terminal, generalizing the teacher's kisspt_init
// (src/kiss.go), which opens a pty and symlinks the slave end so other
// KISS-speaking applications (a terminal program, another TNC client)
// can attach to it as if it were a real serial port.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/narrowband/nbplink/internal/config"
	"github.com/narrowband/nbplink/internal/nbp/address"
	"github.com/narrowband/nbplink/internal/nbp/node"
	"github.com/narrowband/nbplink/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nbplink-pty:", err)
		os.Exit(1)
	}
}

func run() error {
	callsignFlag := pflag.StringP("callsign", "s", "", "This node's station callsign.")
	symlinkFlag := pflag.StringP("symlink", "l", "", "Stable path to symlink to the pty slave device (e.g. /tmp/nbp-kiss).")
	pflag.Parse()

	callsign, ok := address.EncodeString(*callsignFlag)
	if !ok {
		return fmt.Errorf("bad callsign %q", *callsignFlag)
	}

	pty, err := transport.OpenPTY()
	if err != nil {
		return err
	}
	defer pty.Close()

	fmt.Println("nbplink-pty: slave device is", pty.SlavePath())

	if *symlinkFlag != "" {
		os.Remove(*symlinkFlag)

		if err := os.Symlink(pty.SlavePath(), *symlinkFlag); err != nil {
			return fmt.Errorf("symlink %s: %w", *symlinkFlag, err)
		}

		fmt.Println("nbplink-pty: symlinked to", *symlinkFlag)
	}

	n := node.New(callsign)

	ticker := time.NewTicker(config.DefaultTickMs * time.Millisecond)
	defer ticker.Stop()

	last := time.Now()

	for range ticker.C {
		now := time.Now()
		elapsed := int(now.Sub(last).Milliseconds())
		last = now

		if err := n.Recv(pty, node.Callbacks{}); err != nil {
			return fmt.Errorf("recv: %w", err)
		}

		if err := n.Tick(pty, elapsed, node.TickCallbacks{}); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
	}

	return nil
}
