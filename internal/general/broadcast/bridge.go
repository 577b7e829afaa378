package broadcast

import "context"

// Bridge forwards room traffic between service instances. A single-instance
// deployment runs the nop bridge; multi-instance deployments plug in the
// redis implementation so every instance's hub sees every room message.
type Bridge interface {
	// Publish forwards one room payload to the other instances.
	Publish(ctx context.Context, rideID string, payload []byte) error

	// Run blocks delivering remote payloads to the handler until ctx is
	// cancelled. Payloads published by this same instance are not
	// redelivered.
	Run(ctx context.Context, deliver func(rideID string, payload []byte)) error

	Close() error
}

// Nop is the single-instance bridge: local fan-out only.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }

func (Nop) Run(ctx context.Context, _ func(string, []byte)) error {
	<-ctx.Done()
	return nil
}

func (Nop) Close() error { return nil }
