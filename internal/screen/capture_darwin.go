//go:build darwin

package screen

// New captures the main display with screencapture.
func New() (Source, error) {
	// -x: no sound, -m: main display only
	return newToolSource("screencapture", func(path string) []string {
		return []string{"-x", "-t", "png", "-m", path}
	})
}
