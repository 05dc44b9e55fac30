package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidInput is returned when the input set itself is structurally unusable
var ErrInvalidInput = errors.New("invalid input")

// ErrMalformedRecord marks a single record that cannot be processed
var ErrMalformedRecord = errors.New("malformed record")

// Channel is the communication medium a record originated from
type Channel string

const (
	ChannelUnknown Channel = "unknown"
	ChannelEmail   Channel = "email"
	ChannelMeeting Channel = "meeting"
	ChannelChat    Channel = "chat"
)

// KnownChannels lists the concrete channels in their canonical order
var KnownChannels = []Channel{ChannelEmail, ChannelMeeting, ChannelChat}

// ParseChannel maps a loose channel label to a Channel
func ParseChannel(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email", "mail", "gmail", "enron":
		return ChannelEmail
	case "meeting", "transcript", "ami", "fireflies":
		return ChannelMeeting
	case "chat", "slack", "teams":
		return ChannelChat
	default:
		return ChannelUnknown
	}
}

// IsKnown reports whether the channel is one of the concrete channels
func (c Channel) IsKnown() bool {
	return c == ChannelEmail || c == ChannelMeeting || c == ChannelChat
}

// Record is one short text message from a channel
type Record struct {
	ID                string    `json:"id"`
	Channel           Channel   `json:"channel"`
	Timestamp         time.Time `json:"timestamp"`
	Sender            string    `json:"sender,omitempty"`
	Recipients        []string  `json:"recipients,omitempty"` // Set semantics; see NormalizeRecipients
	RawText           string    `json:"raw_text"`
	NoiseScore        float64   `json:"noise_score"`        // 0 = relevant, 1 = pure noise
	ChannelConfidence float64   `json:"channel_confidence"` // Margin of the channel decision
}

// Validate checks the fields every stage relies on
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	case r.Timestamp.IsZero():
		return fmt.Errorf("%w: record %s has no timestamp", ErrMalformedRecord, r.ID)
	case strings.TrimSpace(r.RawText) == "":
		return fmt.Errorf("%w: record %s has empty text", ErrMalformedRecord, r.ID)
	}
	return nil
}

// NormalizeRecipients trims, drops empties and removes case-insensitive
// duplicates, keeping the first spelling. The result is sorted by key.
func NormalizeRecipients(recipients []string) []string {
	seen := make(map[string]bool, len(recipients))
	var out []string
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		key := strings.ToLower(r)
		if r == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// SortRecords orders records by timestamp, then id
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].ID < records[j].ID
	})
}
