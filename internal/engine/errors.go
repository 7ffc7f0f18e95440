package engine

import "errors"

var (
	// ErrDataUnavailable indicates a hub fetch failed. Contained to that hub.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrStaleData marks an order older than the freshness window.
	ErrStaleData = errors.New("order outside freshness window")

	// ErrInsufficientLiquidity indicates the tradeable quantity is below the minimum lot.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrNoProfitableRoute indicates the best bid does not exceed the best ask.
	ErrNoProfitableRoute = errors.New("no profitable route")

	// ErrCapacityExceeded indicates no cargo ship can carry the required volume.
	ErrCapacityExceeded = errors.New("cargo volume exceeds every ship's capacity")

	// ErrJumpLimitExceeded indicates ships with enough capacity exist but every one
	// needs more jumps than its per-trip limit. Always reported together with
	// ErrCapacityExceeded, since no ship can serve the route either way.
	ErrJumpLimitExceeded = errors.New("route exceeds max jumps per trip")

	// ErrConfiguration indicates invalid engine configuration.
	ErrConfiguration = errors.New("invalid configuration")
)
