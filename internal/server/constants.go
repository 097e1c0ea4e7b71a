// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Sliding window for the per-connection WebSocket rate limit.
	RateLimitWindow = time.Second

	// Multipart overhead allowed on top of two images in /api/compare.
	MultipartOverhead = 1 << 20

	// Write deadline for a single WebSocket reply.
	WSWriteTimeout = 5 * time.Second
)

// WebSocket message types.
const (
	TypeHash        = "hash"
	TypeSimilarity  = "similarity"
	TypeError       = "error"
	TypeRateLimited = "rate_limited"
)
