package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/narrowband/nbplink/internal/nbp/address"
	"github.com/narrowband/nbplink/internal/nbp/prn"
	"github.com/narrowband/nbplink/internal/nbp/routing"
)

func callsign(t *testing.T, s string) uint32 {
	t.Helper()
	v, ok := address.EncodeString(s)
	require.True(t, ok)
	return v
}

func TestSerializeAck(t *testing.T) {
	gen := prn.New(callsign(t, "KI7EST0"))

	var dest routing.Route
	dest[0] = gen.Callsign()
	dest[1] = routing.Separator
	dest[2] = gen.Callsign()

	ack := NewAck(gen.Next(), dest)

	var buf bytes.Buffer
	count, err := ToBytes(&buf, ack, nil)
	require.NoError(t, err)
	assert.Equal(t, 4+4*4+2, count)

	var payload [MTU]byte
	got, payloadLen, err := FromBytes(bytes.NewReader(buf.Bytes()), payload[:], count)
	require.NoError(t, err)
	assert.Equal(t, ack.PRN, got.PRN)
	assert.Equal(t, ack.AddressRoute, got.AddressRoute)
	assert.Equal(t, 0, payloadLen)
}

func serializePacket(t *testing.T, dest []uint32, payload []byte) []byte {
	t.Helper()

	gen := prn.New(callsign(t, "KI7EST0"))
	header, err := NewHeader(gen, dest)
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := ToBytes(&buf, header, payload)
	require.NoError(t, err)
	assert.Equal(t, 4+4*(1+len(dest))+len(payload)+2, count)

	return buf.Bytes()
}

func serializeDeserializePacket(t *testing.T, dest []uint32, payload []byte) {
	t.Helper()

	data := serializePacket(t, dest, payload)

	var readPayload [MTU]byte
	got, size, err := FromBytes(bytes.NewReader(data), readPayload[:], len(data))
	require.NoError(t, err)
	assert.Equal(t, len(payload), size)
	assert.Equal(t, payload, readPayload[:size])

	for i, a := range dest {
		assert.Equal(t, a, got.AddressRoute[i])
	}
}

func TestSerializeData(t *testing.T) {
	destAddr := callsign(t, "KF7SJK0")
	srcAddr := callsign(t, "KI7EST0")

	dest := []uint32{destAddr, routing.Separator, srcAddr}
	serializeDeserializePacket(t, dest, []byte{1, 2, 3, 4, 5})
}

func genAddr(t *testing.T, num int) uint32 {
	t.Helper()

	const symbols = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var s string
	if num > 9 {
		s = "TEST" + string(symbols[num/10]) + string(symbols[num%10]) + "0"
	} else {
		s = "TEST" + string(symbols[num]) + "00"
	}

	return callsign(t, s)
}

func TestAddressPermutations(t *testing.T) {
	srcAddr := callsign(t, "KI7EST0")

	for size := 1; size < 15; size++ {
		for i := 0; i < size; i++ {
			dest := []uint32{srcAddr}

			for p := 0; p < i; p++ {
				dest = append(dest, genAddr(t, p))
			}

			dest = append(dest, routing.Separator)

			for p := size - i - 1; p >= 0; p-- {
				dest = append(dest, genAddr(t, p))
			}

			serializeDeserializePacket(t, dest, []byte{1, 2, 3, 4, 5})
		}
	}
}

func TestPayloadSizes(t *testing.T) {
	destAddr := callsign(t, "KF7SJK0")
	srcAddr := callsign(t, "KI7EST0")
	dest := []uint32{destAddr, routing.Separator, srcAddr}

	for _, size := range []int{0, 1, 2, 100, MTU - 1, MTU} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}

		serializeDeserializePacket(t, dest, payload)
	}
}

func TestCorruptBitCausesError(t *testing.T) {
	destAddr := callsign(t, "KF7SJK0")
	srcAddr := callsign(t, "KI7EST0")
	dest := []uint32{destAddr, routing.Separator, srcAddr}

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}

	data := serializePacket(t, dest, payload)

	for byteIdx := 0; byteIdx < len(data); byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			mask := byte(1) << uint(bit)
			data[byteIdx] ^= mask

			var readPayload [MTU]byte
			_, _, err := FromBytes(bytes.NewReader(data), readPayload[:], len(data))
			assert.Error(t, err)

			data[byteIdx] ^= mask
		}
	}
}

func TestMaxSize(t *testing.T) {
	gen := prn.New(callsign(t, "KI7EST0"))

	data := make([]byte, MTU)
	for i := range data {
		data[i] = byte(i)
	}

	route := make([]uint32, 0, routing.Length)
	for i := 0; i < 15; i++ {
		route = append(route, routing.Broadcast)
	}
	route = append(route, routing.Separator, gen.Callsign())

	header, err := NewHeader(gen, route)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = ToBytes(&buf, header, data)
	require.NoError(t, err)
	assert.Equal(t, MaxPacketSize, buf.Len())

	ackHeader := NewAck(gen.Next(), header.AddressRoute)
	buf.Reset()
	_, err = ToBytes(&buf, ackHeader, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxAckSize, buf.Len())
}

// Property: frame round-trip — parse(serialize(f, payload)) == (f, payload)
// for every valid route and payload of length 0..MTU.
func TestFrameRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := prn.New(rapid.Uint32().Draw(t, "callsign"))

		hopCount := rapid.IntRange(0, routing.Length-2).Draw(t, "hopCount")
		route := make([]uint32, 0, routing.Length)
		for i := 0; i < hopCount; i++ {
			route = append(route, rapid.Uint32Range(1, 0xFFFFFFFE).Draw(t, "hop"))
		}
		route = append(route, routing.Separator, gen.Callsign())

		payloadLen := rapid.IntRange(0, MTU).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")

		header, err := NewHeader(gen, route)
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = ToBytes(&buf, header, payload)
		require.NoError(t, err)

		var readPayload [MTU]byte
		got, size, err := FromBytes(bytes.NewReader(buf.Bytes()), readPayload[:], buf.Len())
		require.NoError(t, err)

		assert.Equal(t, header.PRN, got.PRN)
		assert.Equal(t, header.AddressRoute, got.AddressRoute)
		assert.Equal(t, payload, readPayload[:size])
	})
}
