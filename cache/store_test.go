package cache

import (
	"testing"
)

func TestMemoryStoreFieldOperations(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	// Absent field is a miss, not an error.
	if _, ok, err := store.GetField("h", "f"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := store.SetField("h", "f", "v1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, ok, err := store.GetField("h", "f")
	if err != nil || !ok || value != "v1" {
		t.Fatalf("get after set: value=%q ok=%v err=%v", value, ok, err)
	}

	// Overwrite wins.
	if err := store.SetField("h", "f", "v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	value, _, _ = store.GetField("h", "f")
	if value != "v2" {
		t.Fatalf("expected overwritten value v2, got %q", value)
	}

	// Hashes are independent namespaces.
	if _, ok, _ := store.GetField("other", "f"); ok {
		t.Fatal("field leaked across hash namespaces")
	}

	if err := store.DeleteField("h", "f"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.GetField("h", "f"); ok {
		t.Fatal("field survived deletion")
	}

	// Deleting an absent field is not an error.
	if err := store.DeleteField("h", "missing"); err != nil {
		t.Fatalf("deleting absent field failed: %v", err)
	}
}

func TestMemoryStorePing(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if store.GetType() != string(StoreTypeMemory) {
		t.Fatalf("unexpected store type %q", store.GetType())
	}
}

func TestNewStoreFactory(t *testing.T) {
	store, err := NewStore(StoreConfig{Type: StoreTypeMemory})
	if err != nil {
		t.Fatalf("memory store construction failed: %v", err)
	}
	if store.GetType() != string(StoreTypeMemory) {
		t.Fatalf("unexpected store type %q", store.GetType())
	}

	if _, err := NewStore(StoreConfig{Type: "etcd"}); err == nil {
		t.Fatal("expected an error for an unsupported store type")
	}
}
