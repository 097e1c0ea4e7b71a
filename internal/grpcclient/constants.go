// Package grpcclient provides a client for a remote impression hasher
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-attempt deadline; retries get a fresh one.
	DefaultCallTimeout = 10 * time.Second

	// Largest image the client will send or accept back.
	DefaultMaxMessageBytes = 16 << 20
)
