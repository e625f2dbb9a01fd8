package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrowband/nbplink/internal/nbp/address"
)

func mustEncode(t *testing.T, s string) uint32 {
	t.Helper()
	v, ok := address.EncodeString(s)
	require.True(t, ok)
	return v
}

func genTestAddr(t *testing.T, idx int) uint32 {
	t.Helper()
	idx++
	s := "TEST" + string(symbolTable()[idx/10]) + string(symbolTable()[idx%10]) + "0"
	return mustEncode(t, s)
}

func symbolTable() string {
	return "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
}

func TestReverse(t *testing.T) {
	route := Route{1, 2, 3, 0, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	want := Route{8, 7, 6, 5, 0, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	assert.Equal(t, want, Reverse(route))
}

func TestIsDestinationAndBroadcast(t *testing.T) {
	self := mustEncode(t, "KI7EST0")
	other := mustEncode(t, "KF7SJK0")

	route := Route{self, Separator, other}
	assert.True(t, IsDestination(route, self))
	assert.False(t, IsDestination(route, other))
	assert.False(t, IsBroadcast(route))

	broadcastRoute := Route{address.Broadcast, Separator, other}
	assert.True(t, IsDestination(broadcastRoute, self))
	assert.True(t, IsBroadcast(broadcastRoute))
}

func TestFinalAddr(t *testing.T) {
	self := mustEncode(t, "KI7EST0")
	other := mustEncode(t, "KF7SJK0")

	final := Route{self, Separator, other}
	assert.True(t, FinalAddr(final))

	notFinal := Route{other, self, Separator, other}
	assert.False(t, FinalAddr(notFinal))
}

func TestGetSource(t *testing.T) {
	self := mustEncode(t, "KI7EST0")
	other := mustEncode(t, "KF7SJK0")

	route := Route{other, Separator, self}
	assert.Equal(t, self, GetSource(route))
}

func TestAdvanceMalformed(t *testing.T) {
	self := mustEncode(t, "KI7EST0")

	_, err := Advance(Route{}, self)
	assert.ErrorIs(t, err, ErrMalformed)

	noSep := Route{1, 2, 3}
	_, err = Advance(noSep, self)
	assert.ErrorIs(t, err, ErrMalformed)
}

// Property/scenario: Route advance — after Advance(r, self), the
// separator index is exactly one less and r'[sep'+1] == self; applied 15
// times starting from a full forward path, each advance slides the
// next-hop off the front, FinalAddr is true exactly while the separator
// sits at index 1, and once the separator reaches index 0 a further
// advance fails.
func TestAdvanceWalksThroughRoute(t *testing.T) {
	self := mustEncode(t, "KI7EST0")

	var route Route
	idx := 0
	for i := 0; i < 14; i++ {
		route[idx] = genTestAddr(t, i)
		idx++
	}
	route[idx] = self
	idx++
	route[idx] = Separator
	idx++
	route[idx] = self

	for i := 0; i < 15; i++ {
		sepIdx := 15 - i
		require.Equal(t, Separator, route[sepIdx])
		assert.Equal(t, sepIdx == 1, FinalAddr(route))

		destSize := 15 - i
		for dest := 0; dest < destSize; dest++ {
			var expect uint32
			if dest == destSize-1 {
				expect = self
			} else {
				expect = genTestAddr(t, dest+i)
			}
			assert.Equal(t, expect, route[dest])
		}

		srcSize := i + 1
		for src := 0; src < srcSize; src++ {
			assert.Equal(t, self, route[sepIdx+1+src])
		}

		next, err := Advance(route, self)
		require.NoError(t, err)
		route = next
	}

	// The route is now fully consumed (separator at index 0); a further
	// advance has no forward hop left to consume and fails.
	assert.Equal(t, Separator, route[0])
	_, err := Advance(route, self)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFormatRoute(t *testing.T) {
	a := mustEncode(t, "KI7EST0")
	b := mustEncode(t, "KF7SJK0")
	c := mustEncode(t, "TEST000")

	route := Route{a, b, Separator, c}
	got := FormatRoute(route)

	want := address.Format(a) + " <- " + address.Format(b) + " -> " + address.Format(c)
	assert.Equal(t, want, got)
}
