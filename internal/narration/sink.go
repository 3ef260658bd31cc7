package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sink stores finished narration audio and returns where it was written.
type Sink interface {
	Save(ctx context.Context, taskID uuid.UUID, n *Narration) (string, error)
}

// DirSink writes narration audio to files named after the task.
type DirSink struct {
	Dir string
}

// Save writes the audio atomically to <Dir>/<taskID>.<encoding>.
func (d DirSink) Save(ctx context.Context, taskID uuid.UUID, n *Narration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n == nil || len(n.Audio) == 0 {
		return "", errors.New("narration has no audio")
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create narration dir: %w", err)
	}

	ext := n.AudioEncoding
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(d.Dir, taskID.String()+"."+ext)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, n.Audio, 0o644); err != nil {
		return "", fmt.Errorf("write narration: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write narration: %w", err)
	}
	return path, nil
}
