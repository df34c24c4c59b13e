package capture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nghyane/llm-wire/internal/pipeline"
	"github.com/nghyane/llm-wire/internal/wire/stream"
)

func openStore(t *testing.T, retentionDays int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "captures.db"), retentionDays)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var eventDataConfig = &stream.Config{
	Type:       stream.EventData,
	StopEvents: []string{"done"},
	Mappings: map[stream.EventType]stream.Mapping{
		stream.EventTextContent: {EventName: "text", FieldPath: "text"},
	},
}

// ==================== Recorder Tests ====================

func TestRecorder_RoundTripThroughStore(t *testing.T) {
	s := openStore(t, 0)
	ctx := context.Background()

	src := stream.Lines(
		"event: text",
		`data: {"text":"Hel"}`,
		"",
		"event: text",
		`data: {"text":"lo"}`,
		"",
		"event: done",
		"data: {}",
		"",
	)
	rec := NewRecorder(src, "poe", "m1")
	msg, err := pipeline.New("poe", eventDataConfig).Run(ctx, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	tr := rec.Transcript(msg)
	if !tr.Complete {
		t.Error("transcript should be complete")
	}
	if err := s.Save(ctx, tr); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Text != tr.Text || loaded.Provider != "poe" || loaded.Model != "m1" || !loaded.Complete {
		t.Errorf("loaded = %+v, want %+v", loaded.Capture, tr.Capture)
	}

	replayed, err := pipeline.New("poe", eventDataConfig).Run(ctx, loaded.Source())
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replayed.Text != "Hello" {
		t.Errorf("replayed Text = %q, want Hello", replayed.Text)
	}
}

func TestRecorder_KeepsTrailingBlankLines(t *testing.T) {
	rec := NewRecorder(stream.Lines("a", "", ""), "p", "")
	for {
		if _, err := rec.Next(); err != nil {
			break
		}
	}
	tr := rec.Transcript(nil)
	if tr.Lines != 3 {
		t.Errorf("Lines = %d, want 3", tr.Lines)
	}
	src := tr.Source()
	var got []string
	for {
		line, err := src.Next()
		if err != nil {
			break
		}
		got = append(got, line)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "" || got[2] != "" {
		t.Errorf("replayed lines = %q", got)
	}
}

func TestRecorder_IncompleteStream(t *testing.T) {
	rec := NewRecorder(stream.Lines("event: text", `data: {"text":"x"}`), "poe", "")
	msg, err := pipeline.New("poe", eventDataConfig).Run(context.Background(), rec)
	if err == nil {
		t.Fatal("expected incomplete stream error")
	}
	tr := rec.Transcript(msg)
	if tr.Complete || tr.Reason == "" {
		t.Errorf("Complete = %v, Reason = %q", tr.Complete, tr.Reason)
	}
}

// ==================== Store Tests ====================

func TestStore_ListNewestFirstAndFilter(t *testing.T) {
	s := openStore(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, p := range []string{"openai", "poe", "openai"} {
		tr := &Transcript{Capture: Capture{
			ID:        string(rune('a' + i)),
			Provider:  p,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i) * time.Minute),
		}, Text: "x\n"}
		if err := s.Save(ctx, tr); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	all, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("List = %+v", all)
	}
	if !all[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("StartedAt = %v", all[0].StartedAt)
	}

	openai, err := s.List(ctx, "openai", 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(openai) != 1 || openai[0].ID != "c" {
		t.Errorf("filtered List = %+v", openai)
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	s := openStore(t, 0)
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Cleanup(t *testing.T) {
	s := openStore(t, 7)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })

	for id, age := range map[string]time.Duration{"old": 10 * 24 * time.Hour, "new": time.Hour} {
		tr := &Transcript{Capture: Capture{ID: id, Provider: "p", StartedAt: now.Add(-age), EndedAt: now}}
		if err := s.Save(ctx, tr); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	n, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if _, err := s.Load(ctx, "new"); err != nil {
		t.Errorf("new transcript removed: %v", err)
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "c.db"), 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := Open("", 0); err == nil {
		t.Error("empty path accepted")
	}
}
