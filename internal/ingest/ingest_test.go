package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/brdsynth/internal/model"
)

func TestReadRecords_DeclaredChannel(t *testing.T) {
	input := `[
		{"id": "e1", "timestamp": "2025-03-03T09:00:00Z", "sender": "alice@example.com",
		 "recipients": ["bob@example.com"], "subject": "Scope", "content": "SSO must be in phase one"},
		{"id": 7, "timestamp": "2025-03-03 10:30:00", "raw_text": "Budget approved"}
	]`

	records, err := ReadRecords(strings.NewReader(input), model.ChannelEmail)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.Channel != model.ChannelEmail || r.Sender != "alice@example.com" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.RawText != "Subject: Scope\nSSO must be in phase one" {
		t.Errorf("unexpected text %q", r.RawText)
	}
	if !r.Timestamp.Equal(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", r.Timestamp)
	}
	if records[1].ID != "7" || records[1].Timestamp.IsZero() {
		t.Errorf("unexpected second record %+v", records[1])
	}
}

func TestReadRecords_MixedChannels(t *testing.T) {
	input := `[
		{"id": "a", "type": "meeting", "timestamp": "2025-03-03", "text": "x"},
		{"id": "b", "channel": "slack", "timestamp": "2025-03-03", "text": "x"},
		{"id": "c", "timestamp": "not a date", "text": "x"}
	]`
	records, err := ReadRecords(strings.NewReader(input), model.ChannelUnknown)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if records[0].Channel != model.ChannelMeeting || records[1].Channel != model.ChannelChat {
		t.Errorf("unexpected channels %s %s", records[0].Channel, records[1].Channel)
	}
	if records[2].Channel != model.ChannelUnknown || !records[2].Timestamp.IsZero() {
		t.Errorf("expected unknown channel and zero timestamp, got %+v", records[2])
	}
}

func TestReadRecords_NotAnArray(t *testing.T) {
	for _, input := range []string{`{"id": "a"}`, ``, `"text"`, `[{"id": }]`} {
		_, err := ReadRecords(strings.NewReader(input), model.ChannelChat)
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("ReadRecords(%q) error = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	email := filepath.Join(dir, "email.json")
	chat := filepath.Join(dir, "chat.json")
	if err := os.WriteFile(email, []byte(`[{"id":"e1","timestamp":"2025-03-03","text":"a"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(chat, []byte(`[{"id":"c1","timestamp":"2025-03-03","text":"b"},{"id":"c2","timestamp":"2025-03-04","text":"c"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := LoadFiles(context.Background(), []Source{
		{Path: email, Channel: model.ChannelEmail},
		{Path: chat, Channel: model.ChannelChat},
	})
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if len(records) != 3 || records[0].ID != "e1" || records[2].Channel != model.ChannelChat {
		t.Errorf("unexpected records %+v", records)
	}

	_, err = LoadFiles(context.Background(), []Source{{Path: filepath.Join(dir, "missing.json")}})
	if err == nil {
		t.Error("expected error for missing file")
	}
}
