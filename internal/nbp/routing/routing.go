// Package routing implements the NBP source-route algebra: a fixed-length
// address vector split by a separator token into a remaining forward path
// and an already-traversed return path.
package routing

import (
	"errors"
	"strings"

	"github.com/narrowband/nbplink/internal/nbp/address"
)

// Separator marks the boundary between the forward and return segments of
// a Route. It is never a real station address.
const Separator uint32 = 0x00000000

// Broadcast matches any receiver at the current hop.
const Broadcast uint32 = address.Broadcast

// Length is the fixed number of address slots in a Route.
const Length = 17

// Route is a source-routed address vector:
//
//	[ next_hop, hop2, ..., final_dest, SEP, current_sender, ..., origin ]
type Route [Length]uint32

// ErrMalformed is returned when a Route has no separator, or the
// separator sits where advancing it would be meaningless (index 0 or the
// last slot).
var ErrMalformed = errors.New("routing: route has no usable separator")

// IsDestination reports whether route names this node as its current hop,
// either directly or via the broadcast address.
func IsDestination(route Route, self uint32) bool {
	return route[0] == self || route[0] == Broadcast
}

// IsBroadcast reports whether route's current hop is the broadcast
// address.
func IsBroadcast(route Route) bool {
	return route[0] == Broadcast
}

// FinalAddr reports whether this node is the terminal hop: only one
// forward-path slot remains before the separator.
func FinalAddr(route Route) bool {
	return route[1] == Separator
}

// GetSource returns the originating station: the last non-separator
// element, scanning from the end of the route.
func GetSource(route Route) uint32 {
	for i := len(route) - 1; i >= 0; i-- {
		if route[i] != Separator {
			return route[i]
		}
	}

	return Separator
}

// Advance consumes the current hop and puts self at the head of the
// return path: the forward path shifts one slot to the left (so the
// separator moves one slot to the left) and self is written into the
// slot just after the separator. Used when forwarding a frame to the
// next hop.
func Advance(route Route, self uint32) (Route, error) {
	sepIdx := -1
	for i, addr := range route {
		if addr == Separator {
			sepIdx = i
			break
		}
	}

	if sepIdx <= 0 || sepIdx == len(route)-1 {
		return Route{}, ErrMalformed
	}

	newRoute := route

	for i := 0; i < sepIdx; i++ {
		newRoute[i] = newRoute[i+1]
	}

	newRoute[sepIdx] = self

	return newRoute, nil
}

// Reverse produces the route an ack should travel: the concatenation
// forward . [SEP] . return becomes reverse(return) . [SEP] . reverse(forward).
// The whole 17-element vector is reversed, then the trailing run of unused
// separator padding (now leading) is dropped; an interior separator — the
// original boundary token, now marking the new boundary — is kept.
func Reverse(route Route) Route {
	var out Route

	i := len(route) - 1
	for i >= 0 && route[i] == Separator {
		i--
	}

	idx := 0
	for ; i >= 0; i-- {
		out[idx] = route[i]
		idx++
	}

	return out
}

// FormatRoute renders route as a human-readable "A <- B -> C" string:
// addresses before the separator are joined by " <- ", addresses after
// it by " -> ", and separators themselves are not printed.
func FormatRoute(route Route) string {
	var b strings.Builder

	returning := false
	for _, addr := range route {
		if addr == Separator {
			returning = true
			continue
		}

		if b.Len() > 0 {
			if returning {
				b.WriteString(" -> ")
			} else {
				b.WriteString(" <- ")
			}
		}

		b.WriteString(address.Format(addr))
	}

	return b.String()
}
