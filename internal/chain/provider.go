package chain

import "context"

// Provider supplies chain snapshots from a market-data source. All methods
// are read-only; implementations must be safe for concurrent use.
type Provider interface {
	// GetExpirations lists the quoted expiration dates (YYYY-MM-DD) for a symbol.
	GetExpirations(ctx context.Context, symbol string) ([]string, error)
	// GetSnapshot fetches the full chain for one symbol and expiration.
	GetSnapshot(ctx context.Context, symbol, expiration string) (*Snapshot, error)
	// GetSpot returns the current underlying price.
	GetSpot(ctx context.Context, symbol string) (float64, error)
}
