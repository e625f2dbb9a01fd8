// Package transport provides byte-oriented carriers for NBP frames: the
// node core only requires something it can read bytes from and write
// bytes to, so every concrete medium (serial TNC, TCP KISS server, pty,
// or an in-memory pipe for tests) implements the same small interface.
package transport

// Transport is the minimal byte-in/byte-out contract the NBP node core
// depends on. Read may return (0, nil) to mean "nothing available right
// now"; the node treats that as the end of the current receive pass, not
// as a closed stream. Write must send buf in its entirety or return an
// error — the node never issues partial writes of a single frame.
type Transport interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) error
}
