package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/brdsynth/internal/model"
)

// Source is one input file and the channel its loader declares
type Source struct {
	Path    string
	Channel model.Channel // ChannelUnknown when the file mixes channels
}

// wireRecord accepts the field names used by the exporters we ingest from
type wireRecord struct {
	ID         json.RawMessage `json:"id"`
	Channel    string          `json:"channel"`
	Type       string          `json:"type"`
	Timestamp  string          `json:"timestamp"`
	Sender     string          `json:"sender"`
	Recipients []string        `json:"recipients"`
	Subject    string          `json:"subject"`
	RawText    string          `json:"raw_text"`
	Content    string          `json:"content"`
	Text       string          `json:"text"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ReadRecords decodes a JSON array of records. A document that is not an
// array fails with model.ErrInvalidInput. Individual fields are not
// validated here; malformed records are audited by the pipeline.
func ReadRecords(r io.Reader, declared model.Channel) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of records", model.ErrInvalidInput)
	}

	var wire []wireRecord
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	records := make([]model.Record, 0, len(wire))
	for _, w := range wire {
		records = append(records, w.record(declared))
	}
	return records, nil
}

func (w wireRecord) record(declared model.Channel) model.Record {
	ch := declared
	if !ch.IsKnown() {
		label := w.Channel
		if label == "" {
			label = w.Type
		}
		ch = model.ParseChannel(label)
	}

	text := w.RawText
	if text == "" {
		text = w.Content
	}
	if text == "" {
		text = w.Text
	}
	if w.Subject != "" && strings.TrimSpace(text) != "" {
		text = "Subject: " + w.Subject + "\n" + text
	}

	return model.Record{
		ID:         rawID(w.ID),
		Channel:    ch,
		Timestamp:  parseTimestamp(w.Timestamp),
		Sender:     strings.TrimSpace(w.Sender),
		Recipients: w.Recipients,
		RawText:    text,
	}
}

// rawID accepts string and numeric ids
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// parseTimestamp returns the zero time when no layout matches
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// LoadFile reads the records of one file
func LoadFile(path string, declared model.Channel) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, declared)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// LoadFiles reads every source concurrently and concatenates the records
// in source order. The first failing file cancels the rest.
func LoadFiles(ctx context.Context, sources []Source) ([]model.Record, error) {
	perSource := make([][]model.Record, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := LoadFile(src.Path, src.Channel)
			if err != nil {
				return err
			}
			perSource[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Record
	for _, records := range perSource {
		all = append(all, records...)
	}
	return all, nil
}
