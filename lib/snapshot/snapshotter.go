package snapshot

import (
	"context"
	"github.com/ValentinKolb/twinkle/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"sync"
	"time"
)

// Config configures the periodic snapshot task
type Config struct {
	Path     string
	Interval time.Duration
	Compress bool
}

// Snapshotter periodically writes a consistent copy of a store to disk.
// A snapshot whose content did not change since the last successful write is skipped,
// unless the file was removed in the meantime.
type Snapshotter struct {
	store  store.IStore
	config Config
	log    logger.ILogger

	writes    *metrics.Counter
	skipped   *metrics.Counter
	failures  *metrics.Counter
	bytes     *metrics.Counter
	durations *metrics.Histogram

	// mu serializes snapshot runs (ticker and shutdown)
	mu         sync.Mutex
	lastDigest Digest
	hasDigest  bool
}

// NewSnapshotter creates a snapshot task for s. Metrics are registered in set.
func NewSnapshotter(s store.IStore, config Config, log logger.ILogger, set *metrics.Set) *Snapshotter {
	return &Snapshotter{
		store:     s,
		config:    config,
		log:       log,
		writes:    set.GetOrCreateCounter("twinkle_snapshot_writes_total"),
		skipped:   set.GetOrCreateCounter("twinkle_snapshot_skipped_total"),
		failures:  set.GetOrCreateCounter("twinkle_snapshot_errors_total"),
		bytes:     set.GetOrCreateCounter("twinkle_snapshot_written_bytes_total"),
		durations: set.GetOrCreateHistogram("twinkle_snapshot_duration_seconds"),
	}
}

// MarkRestored records the digest of a snapshot that was just loaded from disk,
// so the first tick does not rewrite an identical file.
func (s *Snapshotter) MarkRestored(m map[string][]byte) {
	d, err := ComputeDigest(m)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDigest = d
	s.hasDigest = true
}

// Run writes a snapshot every interval until ctx is cancelled and a final one on shutdown.
// Errors are logged and retried on the next tick, Run itself only returns nil.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.log.Infof("writing snapshots to %s every %s", s.config.Path, s.config.Interval)

	for {
		select {
		case <-ctx.Done():
			if _, err := s.SnapshotNow(); err != nil {
				s.log.Errorf("final snapshot failed: %v", err)
			} else {
				s.log.Infof("final snapshot written to %s", s.config.Path)
			}
			return nil
		case <-ticker.C:
			if _, err := s.SnapshotNow(); err != nil {
				s.log.Errorf("snapshot failed: %v", err)
			}
		}
	}
}

// onDisk reports whether the snapshot file still exists
func (s *Snapshotter) onDisk() bool {
	_, err := os.Stat(s.config.Path)
	return err == nil
}

// SnapshotNow takes a snapshot of the store and writes it unless it equals the last one.
// Returns whether a file was written.
func (s *Snapshotter) SnapshotNow() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	entries := s.store.Snapshot()

	digest, err := ComputeDigest(entries)
	if err != nil {
		s.failures.Inc()
		return false, err
	}
	if s.hasDigest && digest == s.lastDigest && s.onDisk() {
		s.skipped.Inc()
		s.log.Debugf("snapshot unchanged (%d entries), skipping write", len(entries))
		return false, nil
	}

	n, err := WriteFile(s.config.Path, entries, s.config.Compress)
	if err != nil {
		s.failures.Inc()
		return false, err
	}

	s.lastDigest = digest
	s.hasDigest = true
	s.writes.Inc()
	s.bytes.Add(int(n))
	s.durations.UpdateDuration(start)
	s.log.Debugf("snapshot written: %d entries, %d bytes in %s", len(entries), n, time.Since(start))
	return true, nil
}
