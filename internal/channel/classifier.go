package channel

import (
	"regexp"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

var (
	emailHeader   = regexp.MustCompile(`(?im)^\s*(from|to|subject|cc|bcc|sent|date|reply-to):\s*\S`)
	emailSalute   = regexp.MustCompile(`(?im)^\s*(dear|hi|hello)\s+\w+\s*,`)
	emailSignoff  = regexp.MustCompile(`(?im)^\s*(regards|best regards|kind regards|best|sincerely|cheers|thanks|thank you)\s*,?\s*$`)
	meetingMarker = regexp.MustCompile(`(?im)^\s*(attendees|participants|facilitator|scrum master|agenda|action items|minutes of meeting|meeting transcript)\b`)
	speakerTurn   = regexp.MustCompile(`(?m)^\s*([A-Z][\w.'-]*(?: [A-Z][\w.'-]*)?)\s*(?:\([^)]*\))?\s*:\s+\S`)
	chatStamp     = regexp.MustCompile(`(?m)^\s*\[(?:\d{4}-\d{2}-\d{2}[ T])?\d{1,2}:\d{2}(?::\d{2})?\]`)
	chatMention   = regexp.MustCompile(`(?:^|\s)@[A-Za-z][\w.-]*`)
	chatChannel   = regexp.MustCompile(`(?:^|\s)#[A-Za-z][\w-]*`)
)

// Speaker names that are really email or meeting headers
var headerNames = map[string]bool{
	"from": true, "to": true, "subject": true, "cc": true, "bcc": true, "sent": true,
	"date": true, "reply-to": true, "attendees": true, "participants": true,
	"facilitator": true, "agenda": true, "action items": true, "decision": true,
	"note": true, "re": true, "fw": true, "fwd": true,
}

// Classifier infers the channel of a record from its text
type Classifier struct {
	config model.ChannelConfig
}

// NewClassifier creates a classifier
func NewClassifier(config model.ChannelConfig) *Classifier {
	return &Classifier{config: config}
}

// Scores returns the raw feature score of every known channel
func Scores(text string) map[model.Channel]float64 {
	scores := map[model.Channel]float64{
		model.ChannelEmail:   0,
		model.ChannelMeeting: 0,
		model.ChannelChat:    0,
	}

	scores[model.ChannelEmail] += float64(len(emailHeader.FindAllString(text, -1)))
	scores[model.ChannelEmail] += float64(len(emailSalute.FindAllString(text, -1)))
	scores[model.ChannelEmail] += float64(len(emailSignoff.FindAllString(text, -1)))

	scores[model.ChannelMeeting] += float64(len(meetingMarker.FindAllString(text, -1)))
	speakers := make(map[string]bool)
	turns := 0
	for _, m := range speakerTurn.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if headerNames[name] {
			continue
		}
		speakers[name] = true
		turns++
	}
	scores[model.ChannelMeeting] += 0.5 * float64(turns)
	if len(speakers) >= 2 {
		scores[model.ChannelMeeting]++
	}

	scores[model.ChannelChat] += float64(len(chatStamp.FindAllString(text, -1)))
	scores[model.ChannelChat] += 0.5 * float64(len(chatMention.FindAllString(text, -1)))
	scores[model.ChannelChat] += float64(len(chatChannel.FindAllString(text, -1)))

	return scores
}

// Classify returns the channel of a record and the margin of that decision.
// Confidence is (top - runnerUp) / top, so ties score 0.
func (c *Classifier) Classify(record model.Record) (model.Channel, float64) {
	if c.config.TrustDeclared && record.Channel.IsKnown() {
		return record.Channel, 1.0
	}

	scores := Scores(record.RawText)

	// KnownChannels order breaks ties
	top, runnerUp := model.ChannelUnknown, 0.0
	best := -1.0
	for _, ch := range model.KnownChannels {
		s := scores[ch]
		if s > best {
			if best >= 0 {
				runnerUp = best
			}
			best = s
			top = ch
		} else if s > runnerUp {
			runnerUp = s
		}
	}

	if best < c.config.MinScore || best <= 0 {
		return model.ChannelUnknown, 0
	}
	return top, textutil.Round((best-runnerUp)/best, 4)
}

// Apply classifies every record and returns annotated copies
func (c *Classifier) Apply(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, r := range records {
		r.Channel, r.ChannelConfidence = c.Classify(r)
		out[i] = r
	}
	return out
}
