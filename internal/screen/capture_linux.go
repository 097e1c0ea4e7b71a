//go:build linux

package screen

// New captures the display with gnome-screenshot, falling back to scrot.
func New() (Source, error) {
	if src, err := newToolSource("gnome-screenshot", func(path string) []string {
		return []string{"-f", path}
	}); err == nil {
		return src, nil
	}
	return newToolSource("scrot", func(path string) []string {
		return []string{"-o", path}
	})
}
