package app

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"chatrelay/pkg/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestDiskGaugeFollowsStoreLifecycle(t *testing.T) {
	st := openStore(t)
	g := registerDiskGauge(st)
	if g == nil {
		t.Fatal("gauge registration failed")
	}

	// a second registration while the first is live is refused, not fatal
	st2 := openStore(t)
	if dup := registerDiskGauge(st2); dup != nil {
		prometheus.Unregister(dup)
		t.Fatal("duplicate gauge registered")
	}

	// after the first gauge is gone the next store gets its own
	prometheus.Unregister(g)
	g2 := registerDiskGauge(st2)
	if g2 == nil {
		t.Fatal("re-registration after unregister failed")
	}
	prometheus.Unregister(g2)
}
