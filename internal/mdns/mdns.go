// Package mdns advertises a daemon's KISS-over-TCP listener on the LAN
// via Bonjour/mDNS, grounded directly on the teacher's dns_sd.go
// (github.com/brutella/dnssd), generalized from Dire Wolf's
// "_kiss-tnc._tcp" service type to NBP's own.
package mdns

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
)

// ServiceType is the Bonjour/DNS-SD service type advertised for an
// nbplinkd TCP listener.
const ServiceType = "_nbp-kiss._tcp"

// Advertiser runs an mDNS responder announcing one service until Stop is
// called.
type Advertiser struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Announce advertises a KISS-over-TCP listener at port under name (or
// "nbplink" if name is empty). Errors
// encountered while responding are sent to errs, which may be nil.
func Announce(name string, port int, errs chan<- error) (*Advertiser, error) {
	if name == "" {
		name = "nbplink"
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("mdns: create service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mdns: create responder: %w", err)
	}

	if _, err := responder.Add(svc); err != nil {
		return nil, fmt.Errorf("mdns: add service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := responder.Respond(ctx); err != nil && errs != nil {
			errs <- fmt.Errorf("mdns: responder: %w", err)
		}
	}()

	return &Advertiser{cancel: cancel, done: done}, nil
}

// Stop cancels the responder and waits for it to exit.
func (a *Advertiser) Stop() {
	a.cancel()
	<-a.done
}
