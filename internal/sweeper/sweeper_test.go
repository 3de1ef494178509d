package sweeper

import (
	"context"
	"testing"

	"chatrelay/pkg/config"
	"chatrelay/pkg/keys"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/store"
)

func testDir(t *testing.T) (*presence.Directory, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return presence.New(st), st
}

func TestStartDisabledIsNoop(t *testing.T) {
	dir, _ := testDir(t)
	cancel, err := Start(context.Background(), config.SweeperConfig{Enabled: false}, dir)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	dir, _ := testDir(t)
	if _, err := Start(context.Background(), config.SweeperConfig{Enabled: true, Cron: "not a cron"}, dir); err == nil {
		t.Fatal("invalid cron accepted")
	}
}

func TestRunOnceRepairsOrphans(t *testing.T) {
	dir, st := testDir(t)
	if err := dir.Connect("c1", "alice"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := st.Put(presence.Namespace+keys.ConnKey{ConnID: "c2", UserID: "bob"}.Encode(), nil); err != nil {
		t.Fatalf("plant orphan: %v", err)
	}

	RunOnce(dir)

	all, err := st.ScanKeys(presence.Namespace)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected only the intact pair, got %v", all)
	}
}
