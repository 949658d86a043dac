// Package channels adapts concrete chat transports to the message bus.
package channels

import (
	"context"

	"github.com/tinyland-inc/artbot/pkg/bus"
)

// Channel is one chat transport: it feeds inbound events onto the bus and
// renders outbound payloads back to the platform.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, p bus.OutboundPayload) error
	IsRunning() bool
}
