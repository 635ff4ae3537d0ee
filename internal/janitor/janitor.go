/**
 * Temp directory janitor.
 *
 * Staged files are removed when a run finishes, but crashes mid-run can
 * leave orphans. A cron sweep guarantees eventual cleanup.
 */

package janitor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically removes stale files from the temp directory.
type Janitor struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
	cron   *cron.Cron
}

// New creates a janitor for dir with the given file TTL.
func New(dir string, ttl time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		dir:    dir,
		ttl:    ttl,
		logger: logger.Named("janitor"),
		cron:   cron.New(),
	}
}

// Start schedules the sweep every 10 minutes.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("*/10 * * * *", j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts scheduling; a running sweep finishes.
func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep removes files older than the TTL. Exported for direct invocation.
func (j *Janitor) Sweep() {
	cutoff := time.Now().Add(-j.ttl)
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("sweep failed to read temp dir", zap.Error(err))
		}
		return
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil {
			j.logger.Warn("sweep failed to remove file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("swept temp dir", zap.Int("removed", removed))
	}
}
