// Package hostlog adapts the NBP node's optional Trace callback to a
// real structured logger. The core (internal/nbp/node) takes no logging
// dependency itself; this is the host-side wiring that gives it one,
// mirroring the teacher's leveled/colored dispatch in textcolor.go
// (dw_color_e, text_color_set) but backed by a real structured logger
// instead of a hand-rolled color table.
package hostlog

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/narrowband/nbplink/internal/nbp/address"
	"github.com/narrowband/nbplink/internal/nbp/node"
)

// New builds a node.Node Trace callback backed by a charmbracelet/log
// logger writing to w, tagged with the node's own callsign as a static
// field so log output from several nodes stays attributable.
func New(w io.Writer, callsign uint32) func(level node.TraceLevel, msg string, fields ...any) {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})
	logger = logger.With("station", address.Format(callsign))

	return func(level node.TraceLevel, msg string, fields ...any) {
		switch level {
		case node.TraceDebug:
			logger.Debug(msg, fields...)
		case node.TraceWarn:
			logger.Warn(msg, fields...)
		default:
			logger.Info(msg, fields...)
		}
	}
}
