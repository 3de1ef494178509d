package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_store_ops_total",
		Help: "Storage operations by kind.",
	}, []string{"op"})

	opErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_store_errors_total",
		Help: "Failed storage operations by kind.",
	}, []string{"op"})
)

// DiskUsage returns the best-effort on-disk size of the database directory
// in bytes. Exposed as a gauge by the app wiring.
func (s *Store) DiskUsage() uint64 {
	if s == nil || s.path == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
