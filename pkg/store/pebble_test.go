package store

import (
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPutGetDelete(t *testing.T) {
	st := openTestStore(t)

	if err := st.Put("k1", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok, err := st.Get("k1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(v) != "v1" {
		t.Fatalf("got %q want v1", v)
	}

	if _, ok, err := st.Get("absent"); err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}

	if err := st.Delete("k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Get("k1"); ok {
		t.Fatal("key still present after delete")
	}
	// deleting an absent key is not an error
	if err := st.Delete("k1"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestPutNilValue(t *testing.T) {
	st := openTestStore(t)
	if err := st.Put("marker", nil); err != nil {
		t.Fatalf("put nil: %v", err)
	}
	v, ok, err := st.Get("marker")
	if err != nil || !ok {
		t.Fatalf("get marker: ok=%v err=%v", ok, err)
	}
	if len(v) != 0 {
		t.Fatalf("expected empty value, got %q", v)
	}
}

func TestScanPrefixOrderAndBounds(t *testing.T) {
	st := openTestStore(t)
	for _, k := range []string{"a:3", "a:1", "b:1", "a:2", "aa:1"} {
		if err := st.Put(k, []byte(k)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	kvs, err := st.ScanPrefix("a:")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"a:1", "a:2", "a:3"}
	if len(kvs) != len(want) {
		t.Fatalf("got %d keys, want %d", len(kvs), len(want))
	}
	for i, kv := range kvs {
		if kv.Key != want[i] {
			t.Fatalf("key %d: got %q want %q", i, kv.Key, want[i])
		}
	}

	keys, err := st.ScanKeys("zzz:")
	if err != nil {
		t.Fatalf("scan empty prefix: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestClosedStoreRejectsOps(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if st.Ready() {
		t.Fatal("closed store reports ready")
	}
	if err := st.Put("k", nil); err == nil {
		t.Fatal("put on closed store succeeded")
	}
	if _, err := st.ScanPrefix(""); err == nil {
		t.Fatal("scan on closed store succeeded")
	}
}
