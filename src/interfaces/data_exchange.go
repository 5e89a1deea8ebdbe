package interfaces

import "context"

// -----------------------------------------------------------------------------
// IDataExchanger is an outward-facing server (HTTP, gRPC) run by main.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Start serves until the server is stopped. It returns nil after a clean stop.
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop(ctx context.Context) error
}
