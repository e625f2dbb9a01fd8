// Package frame implements the NBP wire format: a PRN-tagged, CRC-guarded
// frame carrying a source route and an optional payload.
package frame

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/narrowband/nbplink/internal/nbp/crc16"
	"github.com/narrowband/nbplink/internal/nbp/prn"
	"github.com/narrowband/nbplink/internal/nbp/routing"
)

// MTU is the maximum payload carried by a single frame. NBP never
// fragments; a payload over MTU is rejected at send time.
const MTU = 1500

// MaxAckSize is the largest a frame with no payload can be: PRN, a full
// route (plus its degenerate 18th terminator word), and the CRC.
const MaxAckSize = 4 + 4*(routing.Length+1) + 2

// MaxPacketSize is the largest any frame on the wire can be.
const MaxPacketSize = MaxAckSize + MTU

// Frame is a single NBP frame. A Frame with no payload acts as an ack.
type Frame struct {
	PRN          uint32
	AddressRoute routing.Route
}

// Errors returned while parsing a frame from bytes.
var (
	ErrTruncated  = errors.New("frame: truncated before the declared frame size was reached")
	ErrBadAddress = errors.New("frame: route terminator word was not a separator")
	ErrCRCFailure = errors.New("frame: CRC check failed")
)

// Errors returned while building a frame header.
var (
	ErrAddressTooLong = errors.New("frame: destination route exceeds route capacity")
	ErrNoSeparator    = errors.New("frame: destination route has no separator")
)

// NewAck builds an ack frame: the ack carries no payload, so its Frame
// value alone (prn + route) is the entire message.
func NewAck(prnValue uint32, dest routing.Route) Frame {
	return Frame{PRN: prnValue, AddressRoute: dest}
}

// NewHeader builds a data frame addressed to dest, which must contain a
// SEPARATOR somewhere in its first routing.Length entries, and assigns it
// the generator's next PRN.
func NewHeader(gen *prn.Generator, dest []uint32) (Frame, error) {
	if len(dest) > routing.Length {
		return Frame{}, ErrAddressTooLong
	}

	var addr routing.Route
	foundSep := false

	for i, a := range dest {
		if a == routing.Separator {
			foundSep = true
		}
		addr[i] = a
	}

	if !foundSep {
		return Frame{}, ErrNoSeparator
	}

	return Frame{PRN: gen.Next(), AddressRoute: addr}, nil
}

func readU32(r io.Reader, crc crc16.CRC) (uint32, crc16.CRC, error) {
	var buf [4]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, crc, ErrTruncated
	}

	value := binary.BigEndian.Uint32(buf[:])

	return value, crc16.UpdateU32(value, crc), nil
}

// FromBytes parses a single frame of size total bytes from r, writing its
// payload into outPayload (which must be at least MTU bytes). It returns
// the parsed frame and the number of payload bytes written.
//
// Per the wire contract, the route is read as a run of up to
// routing.Length words, stopping once two separator-valued words have
// been seen (the real boundary, then the first word of trailing zero
// padding). If all routing.Length words are consumed without seeing a
// second separator, one more terminator word is read and must itself be
// a separator, or ErrBadAddress is returned.
func FromBytes(r io.Reader, outPayload []byte, size int) (Frame, int, error) {
	crc := crc16.New()

	prnValue, crc, err := readU32(r, crc)
	if err != nil {
		return Frame{}, 0, err
	}

	var addr routing.Route
	addrLen := 0
	sepsSeen := 0

	for addrLen < routing.Length {
		var value uint32
		value, crc, err = readU32(r, crc)
		if err != nil {
			return Frame{}, 0, err
		}

		if value == routing.Separator {
			sepsSeen++
		}

		addr[addrLen] = value
		addrLen++

		if sepsSeen == 2 {
			break
		}
	}

	var badAddress bool

	if addrLen == routing.Length && sepsSeen != 2 {
		var value uint32
		value, crc, err = readU32(r, crc)
		if err != nil {
			return Frame{}, 0, err
		}
		addrLen++

		if value != routing.Separator {
			badAddress = true
		}
	}

	headerSize := 4 + addrLen*4 + 2
	if size < headerSize {
		return Frame{}, 0, ErrTruncated
	}

	payloadSize := size - headerSize
	if payloadSize > len(outPayload) {
		return Frame{}, 0, ErrTruncated
	}

	if _, err := io.ReadFull(r, outPayload[:payloadSize]); err != nil {
		return Frame{}, 0, ErrTruncated
	}

	for _, b := range outPayload[:payloadSize] {
		crc = crc16.UpdateU8(b, crc)
	}

	finished := crc16.Finish(crc)

	var crcBuf [2]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return Frame{}, 0, ErrTruncated
	}
	frameCRC := binary.BigEndian.Uint16(crcBuf[:])

	result := Frame{PRN: prnValue, AddressRoute: addr}

	// CRC mismatch takes precedence: it is checked last against the fully
	// consumed stream, and a corrupted terminator word is exactly the kind
	// of corruption the CRC is meant to catch.
	if frameCRC != finished {
		return Frame{}, 0, ErrCRCFailure
	}

	if badAddress {
		return Frame{}, 0, ErrBadAddress
	}

	return result, payloadSize, nil
}

func writeU32(w io.Writer, value uint32, crc crc16.CRC) (int, crc16.CRC, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], value)

	if _, err := w.Write(buf[:]); err != nil {
		return 0, crc, err
	}

	return 4, crc16.UpdateU32(value, crc), nil
}

// ToBytes serializes frame to w, optionally followed by payload, and
// returns the total number of bytes written. The route is written word
// by word until its second separator-valued word has been written; if
// only one separator was ever written (the route's forward path used
// every remaining slot), a trailing terminator separator is appended.
func ToBytes(w io.Writer, f Frame, payload []byte) (int, error) {
	crc := crc16.New()
	size := 0

	n, crc, err := writeU32(w, f.PRN, crc)
	if err != nil {
		return 0, err
	}
	size += n

	sepsWritten := 0
	for _, a := range f.AddressRoute {
		if a == routing.Separator {
			sepsWritten++
		}

		n, crc, err = writeU32(w, a, crc)
		if err != nil {
			return 0, err
		}
		size += n

		if sepsWritten == 2 {
			break
		}
	}

	if sepsWritten == 1 {
		n, crc, err = writeU32(w, routing.Separator, crc)
		if err != nil {
			return 0, err
		}
		size += n
	}

	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return 0, err
		}
		size += len(payload)

		for _, b := range payload {
			crc = crc16.UpdateU8(b, crc)
		}
	}

	finished := crc16.Finish(crc)

	var crcBuf [2]byte
	binary.BigEndian.PutUint16(crcBuf[:], finished)
	if _, err := w.Write(crcBuf[:]); err != nil {
		return 0, err
	}
	size += 2

	return size, nil
}
