// Command nbplink-console is a small interactive console for a single
// NBP node: lines typed at the terminal are sent as payloads to a
// configured route, and received/observed frames scroll by as they
// arrive. It uses github.com/pkg/term to put the controlling terminal
// into raw mode for line editing, the same library and raw-mode idiom
// the teacher uses in serial_port.go/kissserial.go for its own
// interactive command tools.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/narrowband/nbplink/internal/config"
	"github.com/narrowband/nbplink/internal/nbp/address"
	"github.com/narrowband/nbplink/internal/nbp/frame"
	"github.com/narrowband/nbplink/internal/nbp/node"
	"github.com/narrowband/nbplink/internal/nbp/routing"
	"github.com/narrowband/nbplink/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nbplink-console:", err)
		os.Exit(1)
	}
}

func run() error {
	callsignFlag := pflag.StringP("callsign", "s", "", "This console's station callsign.")
	destFlag := pflag.StringP("dest", "d", "", "Destination callsign for typed lines.")
	dialFlag := pflag.StringP("dial", "D", "", "Dial a KISS-over-TCP peer at host:port.")
	pflag.Parse()

	callsign, ok := address.EncodeString(*callsignFlag)
	if !ok {
		return fmt.Errorf("bad callsign %q", *callsignFlag)
	}

	dest, ok := address.EncodeString(*destFlag)
	if !ok {
		return fmt.Errorf("bad destination %q", *destFlag)
	}

	if *dialFlag == "" {
		return fmt.Errorf("--dial host:port is required")
	}

	tx, err := transport.DialTCP(*dialFlag, 5*time.Second)
	if err != nil {
		return err
	}
	_ = tx.SetReadDeadline(50 * time.Millisecond)

	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return fmt.Errorf("open controlling terminal: %w", err)
	}
	defer tty.Restore()
	defer tty.Close()

	lines := make(chan []byte)
	quit := make(chan struct{})

	go readLines(tty, lines, quit)

	n := node.New(callsign)

	return drive(n, tx, dest, lines, quit)
}

// drive is the node's single home goroutine: it owns n exclusively, as
// the core requires (Recv/Send/Tick may never run concurrently against
// the same Node), multiplexing the tick clock against completed lines
// from the raw-mode reader over a channel rather than calling into n
// from two goroutines.
func drive(n *node.Node, tx *transport.TCP, dest uint32, lines <-chan []byte, quit <-chan struct{}) error {
	ticker := time.NewTicker(config.DefaultTickMs * time.Millisecond)
	defer ticker.Stop()

	last := time.Now()

	cb := node.Callbacks{
		Recv: func(f frame.Frame, payload []byte) {
			fmt.Printf("\r\n[recv] prn=%08x route=%s payload=%q\r\n", f.PRN, routing.FormatRoute(f.AddressRoute), payload)
		},
		Observe: func(f frame.Frame, payload []byte) {
			fmt.Printf("\r\n[observe] prn=%08x route=%s\r\n", f.PRN, routing.FormatRoute(f.AddressRoute))
		},
	}

	tickCb := node.TickCallbacks{
		Retry: func(f frame.Frame, payload []byte, nextMs int) {
			fmt.Printf("\r\n[retry] prn=%08x next=%dms\r\n", f.PRN, nextMs)
		},
		Expire: func(f frame.Frame, payload []byte) {
			fmt.Printf("\r\n[expire] prn=%08x\r\n", f.PRN)
		},
	}

	for {
		select {
		case <-quit:
			return nil

		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			if _, err := n.Send(tx, line, []uint32{dest}); err != nil {
				fmt.Fprintln(os.Stderr, "\r\nsend error:", err)
			}

		case now := <-ticker.C:
			elapsed := int(now.Sub(last).Milliseconds())
			last = now

			if err := n.Recv(tx, cb); err != nil {
				return fmt.Errorf("recv: %w", err)
			}

			if err := n.Tick(tx, elapsed, tickCb); err != nil {
				return fmt.Errorf("tick: %w", err)
			}
		}
	}
}

// readLines reads raw-mode keystrokes from tty, echoing and assembling
// them into lines, delivering each completed line on lines. It never
// touches the node directly.
func readLines(tty *term.Term, lines chan<- []byte, quit chan<- struct{}) {
	reader := bufio.NewReader(tty)
	var line []byte

	for {
		b, err := reader.ReadByte()
		if err != nil {
			close(quit)
			return
		}

		switch b {
		case '\r', '\n':
			fmt.Print("\r\n")
			lines <- append([]byte(nil), line...)
			line = line[:0]
		case 0x7f, '\b':
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Print("\b \b")
			}
		case 0x03: // Ctrl-C
			close(quit)
			return
		default:
			line = append(line, b)
			os.Stdout.Write([]byte{b})
		}
	}
}
