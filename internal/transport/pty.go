package transport

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// PTY is a pseudo-terminal-backed transport: the node's bytes go out the
// master side, and any other KISS-speaking application can open the
// slave side's device path (symlinked somewhere stable) and see exactly
// the same byte stream a real serial TNC would produce. Grounded on the
// teacher's kisspt_init/kisspt_open_pt (src/kiss.go), which does the same
// thing via a raw pty.Open call; this wraps that one call behind the
// shared Transport contract instead of leaving it inlined in main.
type PTY struct {
	master *os.File
	slave  *os.File
}

// OpenPTY allocates a new pseudo-terminal pair. SlavePath returns the
// path a peer should open to attach.
func OpenPTY() (*PTY, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("transport: open pty: %w", err)
	}

	return &PTY{master: master, slave: slave}, nil
}

// SlavePath is the device path of the pty's slave end.
func (p *PTY) SlavePath() string {
	return p.slave.Name()
}

// Read reads from the master end.
func (p *PTY) Read(buf []byte) (int, error) {
	return p.master.Read(buf)
}

// Write writes buf in full to the master end.
func (p *PTY) Write(buf []byte) error {
	_, err := p.master.Write(buf)
	return err
}

// Close releases both ends of the pty.
func (p *PTY) Close() error {
	sErr := p.slave.Close()
	mErr := p.master.Close()

	if mErr != nil {
		return mErr
	}

	return sErr
}
