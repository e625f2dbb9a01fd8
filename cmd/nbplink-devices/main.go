// Command nbplink-devices enumerates serial devices on the system as
// KISS TNC candidates (every initialized device in the tty subsystem
// that has a device node; the parent bus is not checked), via
// github.com/jochenvg/go-udev — a dependency the teacher declares in
// go.mod but never imports from any file in its own tree. This is an
// operator-facing discovery *tool* for picking a /dev/tty* device; it has
// nothing to do with NBP protocol-level station/address discovery, which
// spec.md explicitly scopes out.
package main

import (
	"fmt"
	"os"

	"github.com/jochenvg/go-udev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nbplink-devices:", err)
		os.Exit(1)
	}
}

func run() error {
	u := udev.Udev{}
	enum := u.NewEnumerate()

	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return fmt.Errorf("match tty subsystem: %w", err)
	}

	if err := enum.AddMatchIsInitialized(); err != nil {
		return fmt.Errorf("match initialized: %w", err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}

	found := false

	for _, d := range devices {
		node := d.Devnode()
		if node == "" {
			continue
		}

		vendor := d.PropertyValue("ID_VENDOR")
		model := d.PropertyValue("ID_MODEL")
		serial := d.PropertyValue("ID_SERIAL_SHORT")

		if vendor == "" && model == "" {
			// Plain platform UARTs (ttyS0, ttyAMA0, ...) rarely have USB
			// descriptor properties; still list them, just with less detail.
			fmt.Println(node)
			found = true
			continue
		}

		fmt.Printf("%s\t%s %s (%s)\n", node, vendor, model, serial)
		found = true
	}

	if !found {
		fmt.Println("no candidate serial devices found")
	}

	return nil
}
