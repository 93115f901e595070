package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/udunits2-publisher/internal/logger"
)

var errPublisherAlreadyRunning = errors.New("the publisher is already running")

const (
	// MarkerFilename marks that a publisher is running right now to avoid parallel execution.
	MarkerFilename = "udunits2-publisher.marker"

	// markerLifetime is the period after which a marker is ignored even if its process is alive.
	markerLifetime = 2 * time.Hour

	// markerFileMode is the permission of the marker file.
	markerFileMode os.FileMode = 0o600

	// temporaryDirectoryPattern names per-run output directories.
	temporaryDirectoryPattern = "udunits2-publisher-"
)

// DefaultMarkerPath returns the marker location in the system temp directory.
func DefaultMarkerPath() string {
	return filepath.Join(os.TempDir(), MarkerFilename)
}

// runMarker is the content of the marker file.
type runMarker struct {
	// PID is the process holding the marker.
	PID int `yaml:"pid"`
	// Actor is who started that process.
	Actor string `yaml:"actor"`
	// StartedAt is when the marker was written.
	StartedAt time.Time `yaml:"started_at"`
}

// isPublisherRunningNow reads the marker at path and reports whether another
// live process holds it. Stale, unreadable and own markers do not count.
func isPublisherRunningNow(ctx context.Context, path string) (bool, *runMarker) {
	logger.DebugKV(ctx, "Checking for the presence of a run marker", "path", path)

	fileInfo, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to read run marker", "error", err)
		}

		return false, nil
	}

	if time.Since(fileInfo.ModTime()) > markerLifetime {
		logger.Info(ctx, "The run marker is too old, ignoring it")
		return false, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.WarnKV(ctx, "Unable to read run marker", "error", err)
		return false, nil
	}

	var marker runMarker
	if err = yaml.Unmarshal(contents, &marker); err != nil || marker.PID <= 0 {
		logger.Info(ctx, "The run marker is malformed, ignoring it")
		return false, nil
	}

	if marker.PID == os.Getpid() {
		return false, &marker
	}

	process, err := ps.FindProcess(marker.PID)
	if err != nil {
		// Cannot tell, so assume the holder is alive.
		logger.WarnKV(ctx, "Unable to look up marker process", "pid", marker.PID, "error", err)
		return true, &marker
	}

	if process == nil {
		logger.InfoKV(ctx, "The run marker process is gone, ignoring it", "pid", marker.PID)
		return false, &marker
	}

	return true, &marker
}

// acquireMarker writes a marker for this process unless another run holds one.
func acquireMarker(ctx context.Context, path, actor string) error {
	if running, marker := isPublisherRunningNow(ctx, path); running {
		return fmt.Errorf("%w: pid %d started by %s at %s", errPublisherAlreadyRunning,
			marker.PID, marker.Actor, marker.StartedAt.Format(time.RFC3339))
	}

	data, err := yaml.Marshal(&runMarker{
		PID:       os.Getpid(),
		Actor:     actor,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode run marker: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, markerFileMode); err != nil {
		return fmt.Errorf("write run marker: %w", err)
	}

	return nil
}

// releaseMarker removes the marker if this process owns it.
func releaseMarker(ctx context.Context, path string) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return
	}

	var marker runMarker
	if err = yaml.Unmarshal(contents, &marker); err == nil && marker.PID != os.Getpid() {
		return
	}

	if err = os.Remove(path); err != nil {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", path, "error", err)
	}
}
