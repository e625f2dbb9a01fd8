// Package kiss implements the KISS TNC byte-stuffed framing protocol used
// to carry NBP frames over a serial link, pty, or TCP socket.
package kiss

// Frame delimiter codes.
const (
	fend  byte = 0xC0 // Marks the start and end of a frame.
	fesc  byte = 0xDB // Escapes a literal FEND or FESC appearing in data.
	tfend byte = 0xDC // Escaped representation of FEND.
	tfesc byte = 0xDD // Escaped representation of FESC.
)

// KISS command codes, placed in the low nibble of the first frame byte.
const (
	CmdData        byte = 0x00
	CmdTXDelay     byte = 0x01
	CmdPersistence byte = 0x02
	CmdSlotTime    byte = 0x03
	CmdTXTail      byte = 0x04
	CmdDuplex      byte = 0x05
	CmdReturn      byte = 0xFF
)

// Encode appends data to encoded as a complete KISS data frame on port,
// byte-stuffing any FEND or FESC bytes found in data.
func Encode(data []byte, encoded []byte, port byte) []byte {
	encoded = append(encoded, fend, CmdData|((port&0x0F)<<4))

	for _, b := range data {
		switch b {
		case fend:
			encoded = append(encoded, fesc, tfend)
		case fesc:
			encoded = append(encoded, fesc, tfesc)
		default:
			encoded = append(encoded, b)
		}
	}

	encoded = append(encoded, fend)

	return encoded
}

// EncodeCmd appends a single-byte KISS command frame to encoded. CmdReturn
// carries no port or data byte, since it applies to every port.
func EncodeCmd(encoded []byte, cmd byte, data byte, port byte) []byte {
	encoded = append(encoded, fend)

	if cmd == CmdReturn {
		encoded = append(encoded, CmdReturn)
	} else {
		encoded = append(encoded, cmd|((port&0x0F)<<4), data)
	}

	encoded = append(encoded, fend)

	return encoded
}

// DecodedFrame describes a single frame recovered by Decode.
type DecodedFrame struct {
	Port      byte
	BytesRead int
}

// Decode scans data for the first complete KISS frame, appending its
// payload bytes to decoded and returning the resulting slice along with
// the port and the number of input bytes consumed. It reports false if
// data contains no complete frame (no closing FEND was found), in which
// case decoded is returned unmodified.
//
// Leading bytes before the first FEND are skipped. A FEND immediately
// followed by another FEND is treated as an empty frame boundary and the
// scan restarts from the second FEND. An escape byte (FESC) followed by
// anything other than TFEND or TFESC is a malformed escape; the FESC and
// the offending byte are both dropped and decoding continues.
func Decode(data []byte, decoded []byte) (DecodedFrame, []byte, bool) {
	start := -1
	for i, b := range data {
		if b != fend {
			continue
		}

		if start < 0 {
			start = i
			continue
		}

		if start+1 == i {
			// Empty frame: restart the scan from this FEND.
			start = i
			continue
		}

		if frame, out, ok := decodeBody(data[start+1:i], decoded, i+1); ok {
			return frame, out, true
		}

		// Nothing left after unescaping, not even the command byte:
		// treat it like an empty frame and restart from this FEND.
		start = i
	}

	return DecodedFrame{}, decoded, false
}

// decodeBody unstuffs body (the bytes strictly between the opening and
// closing FEND) into decoded, splitting off the leading command/port byte.
// bytesRead is the count of source bytes consumed, already including both
// delimiters.
func decodeBody(body []byte, decoded []byte, bytesRead int) (DecodedFrame, []byte, bool) {
	var port byte
	portSet := false
	escaped := false

	for _, b := range body {
		if escaped {
			escaped = false

			switch b {
			case tfend:
				b = fend
			case tfesc:
				b = fesc
			default:
				// Unknown escape: drop the byte entirely.
				continue
			}
		} else if b == fesc {
			escaped = true
			continue
		}

		if !portSet {
			port = b >> 4
			portSet = true
			continue
		}

		decoded = append(decoded, b)
	}

	if !portSet {
		return DecodedFrame{}, decoded, false
	}

	return DecodedFrame{Port: port, BytesRead: bytesRead}, decoded, true
}
