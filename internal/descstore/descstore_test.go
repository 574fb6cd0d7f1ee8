package descstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "desc.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "chat-1", "Daily Data:\ntemperature_2m_mean: mean=16.20"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == "" || got[:10] != "Daily Data" {
		t.Fatalf("got %q", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "chat-1", "first"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "chat-1", "second"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "second" {
		t.Fatalf("got %q, want the later write", got)
	}
}

func TestGetMissingIsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestPutRejectsEmptyChatID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(context.Background(), "", "body"); err == nil {
		t.Fatalf("expected error for empty chat id")
	}
}
