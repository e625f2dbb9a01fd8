// Package rig tunes a hamlib-controlled radio's frequency and mode
// before a node starts running, via github.com/xylo04/goHamlib — a
// dependency the teacher declares in go.mod for its own well-known
// hamlib rig-control feature but never actually calls from any file in
// its own tree. This gives it a caller: a one-shot "set it and forget
// it" tune at daemon startup, not ongoing rig control (NBP frames carry
// no rig-control payload of their own).
package rig

import (
	"fmt"

	hamlib "github.com/xylo04/goHamlib"
)

// Tune opens the hamlib-modeled radio at device using model (a hamlib
// rig model constant) and sets its VFO frequency and mode, then closes
// the rig handle — the radio is left tuned for the transport to use.
func Tune(model int, device string, freqHz int64, mode string) error {
	r := hamlib.RigInit(hamlib.RigModel(model))
	if r == nil {
		return fmt.Errorf("rig: unknown hamlib model %d", model)
	}
	defer r.Cleanup()

	if err := r.SetConf("rig_pathname", device); err != nil {
		return fmt.Errorf("rig: configure path %s: %w", device, err)
	}

	if err := r.Open(); err != nil {
		return fmt.Errorf("rig: open %s: %w", device, err)
	}
	defer r.Close()

	if err := r.SetFreq(hamlib.VFOCurrent, float64(freqHz)); err != nil {
		return fmt.Errorf("rig: set frequency %d: %w", freqHz, err)
	}

	if mode != "" {
		rigMode, ok := modeByName[mode]
		if !ok {
			return fmt.Errorf("rig: unknown mode %q", mode)
		}

		if err := r.SetMode(hamlib.VFOCurrent, rigMode, 0); err != nil {
			return fmt.Errorf("rig: set mode %q: %w", mode, err)
		}
	}

	return nil
}

var modeByName = map[string]hamlib.RigMode{
	"FM":  hamlib.ModeFM,
	"AM":  hamlib.ModeAM,
	"USB": hamlib.ModeUSB,
	"LSB": hamlib.ModeLSB,
	"CW":  hamlib.ModeCW,
}
