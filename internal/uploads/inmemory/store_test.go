package inmemory

import (
	"context"
	"testing"

	"github.com/dvloznov/acct-ai/internal/uploads"
)

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	items := []uploads.Item{
		{ID: "b", Filename: "b.pdf", Status: uploads.StatusFailed, Error: "boom"},
		{ID: "a", Filename: "a.pdf", Status: uploads.StatusSynced},
	}
	if err := store.SavePersistedUploads(ctx, "user-1", items); err != nil {
		t.Fatalf("SavePersistedUploads() error = %v", err)
	}

	items[0].Status = uploads.StatusSynced

	got, err := store.LoadPersistedUploads(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadPersistedUploads() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[0].Status != uploads.StatusFailed {
		t.Errorf("LoadPersistedUploads() = %+v, want saved copy in order", got)
	}

	got[1].Filename = "changed"
	again, _ := store.LoadPersistedUploads(ctx, "user-1")
	if again[1].Filename != "a.pdf" {
		t.Error("loaded slice must be a copy")
	}
}

func TestStore_UnknownSlot(t *testing.T) {
	got, err := NewStore().LoadPersistedUploads(context.Background(), "nobody")
	if err != nil || len(got) != 0 {
		t.Errorf("LoadPersistedUploads() = %v, %v; want empty", got, err)
	}
}

func TestStore_EmptySlot(t *testing.T) {
	if err := NewStore().SavePersistedUploads(context.Background(), "", nil); err == nil {
		t.Error("expected error for empty slot")
	}
}
