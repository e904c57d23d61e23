package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "renders.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginFinishRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	first, err := s.Begin(ctx, "first.mp4", 2)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Finish(ctx, first, 9.0, "https://storage.googleapis.com/b/first.mp4", nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	second, _ := s.Begin(ctx, "second.mp4", 3)
	if err := s.Finish(ctx, second, 0, "", errors.New("encode error: ffmpeg")); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	third, _ := s.Begin(ctx, "third.mp4", 1)

	runs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs", len(runs))
	}

	tests := []struct {
		id, status, output string
	}{
		{third, StatusRunning, "third.mp4"},
		{second, StatusFailed, "second.mp4"},
		{first, StatusOK, "first.mp4"},
	}
	for i, tt := range tests {
		r := runs[i]
		if r.ID != tt.id || r.Status != tt.status || r.Output != tt.output {
			t.Errorf("run %d = %+v, want %+v", i, r, tt)
		}
	}
	if runs[2].Duration != 9.0 || runs[2].PublicURL == "" || runs[2].FinishedAt.IsZero() {
		t.Errorf("finished run not recorded: %+v", runs[2])
	}
	if runs[1].Error != "encode error: ffmpeg" {
		t.Errorf("error = %q", runs[1].Error)
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Error("running run should have no finish time")
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Begin(ctx, "out.mp4", 1)
	}
	runs, err := s.Recent(ctx, 2)
	if err != nil || len(runs) != 2 {
		t.Errorf("got %d runs, %v", len(runs), err)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	if err := s.Finish(context.Background(), "missing", 0, "", nil); err == nil {
		t.Error("expected error")
	}
}
