package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultStatsDays      = 14
)
