// Package screen captures frames and reports when they change perceptually
package screen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
)

// Source yields encoded image frames.
type Source interface {
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

// FileSource re-reads one image file on every grab.
type FileSource struct {
	Path string
}

func (f FileSource) Grab(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read %s", f.Path)
	}
	return data, nil
}

func (FileSource) Close() error { return nil }

// toolSource runs an external screenshot tool that writes to a file.
type toolSource struct {
	name    string
	args    func(path string) []string
	tempDir string
}

func newToolSource(name string, args func(path string) []string) (*toolSource, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "screenshot tool %s not found", name)
	}
	tmpDir, err := os.MkdirTemp("", "impressionhash-screen-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create temp dir")
	}
	return &toolSource{name: name, args: args, tempDir: tmpDir}, nil
}

func (s *toolSource) Grab(ctx context.Context) ([]byte, error) {
	path := filepath.Join(s.tempDir, "screenshot.png")
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, s.name, s.args(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "%s failed: %s", s.name, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "read %s output", s.name)
	}
	return data, nil
}

// Close removes the temp directory
func (s *toolSource) Close() error {
	return os.RemoveAll(s.tempDir)
}
