//go:build linux

package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Serial is a real serial-port transport talking to a hardware or USB
// TNC in KISS mode. It configures the port into raw 8N1 mode directly
// via termios ioctls, the same low-level approach the teacher takes for
// its own device control in ptt.go/cm108.go (golang.org/x/sys/unix
// rather than a higher-level serial library, since the teacher never
// uses one).
type Serial struct {
	f *os.File
}

// baudToTermios maps the handful of baud rates KISS TNCs commonly run
// at to their termios constant.
var baudToTermios = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// OpenSerial opens path (e.g. "/dev/ttyUSB0") and configures it for raw
// binary KISS I/O at the given baud rate.
func OpenSerial(path string, baud int) (*Serial, error) {
	rate, ok := baudToTermios[baud]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}

	fd := int(f.Fd())

	term, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: get termios on %s: %w", path, err)
	}

	term.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	term.Oflag &^= unix.OPOST
	term.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	term.Cflag &^= unix.CSIZE | unix.PARENB
	term.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	term.Cc[unix.VMIN] = 1
	term.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, term); err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: set termios on %s: %w", path, err)
	}

	if err := setSpeed(fd, rate); err != nil {
		f.Close()
		return nil, err
	}

	return &Serial{f: f}, nil
}

func setSpeed(fd int, rate uint32) error {
	term, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	term.Ispeed = rate
	term.Ospeed = rate

	return unix.IoctlSetTermios(fd, unix.TCSETS, term)
}

// Read reads bytes currently available from the port.
func (s *Serial) Read(buf []byte) (int, error) {
	return s.f.Read(buf)
}

// Write writes buf in full to the port.
func (s *Serial) Write(buf []byte) error {
	_, err := s.f.Write(buf)
	return err
}

// Fd exposes the raw file descriptor for callers that need direct ioctl
// access to the port.
func (s *Serial) Fd() uintptr {
	return s.f.Fd()
}

// Close closes the underlying device file.
func (s *Serial) Close() error {
	return s.f.Close()
}
