package screen

import "time"

// Watch defaults
const (
	// Time between captures
	DefaultInterval = time.Second

	// Frames at least this similar to the last reported frame are ignored
	DefaultThreshold = 0.9
)
