package model

import (
	"encoding/json"
	"time"

	"github.com/Skyrin/go-safar/e"
)

// Kind identifies the mutation carried by a queue item
type Kind string

const (
	KindLessonComplete Kind = "lesson_complete"
	KindWordProgress   Kind = "word_progress"

	// TimeFormat ISO-8601 in UTC with millisecond precision
	TimeFormat = "2006-01-02T15:04:05.000Z07:00"

	ECode040201 = e.Code0402 + "01"
	ECode040202 = e.Code0402 + "02"
	ECode040203 = e.Code0402 + "03"
)

// FormatTime formats the time with TimeFormat in UTC
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Payload one variant of the queued mutation union. Each variant matches the
// row shape expected by its remote table
type Payload interface {
	Kind() Kind
}

// LessonComplete a lesson marked complete while offline
type LessonComplete struct {
	LessonID    string `json:"lesson_id"`
	CompletedAt string `json:"completed_at"`
}

// Kind implements Payload
func (LessonComplete) Kind() Kind { return KindLessonComplete }

// WordProgress the spaced-repetition state of a word saved while offline
type WordProgress struct {
	WordID      string  `json:"word_id"`
	EaseFactor  float64 `json:"ease_factor"`
	Interval    int     `json:"interval"`
	Repetitions int     `json:"repetitions"`
	NextReview  string  `json:"next_review"`
	Status      string  `json:"status"`
}

// Kind implements Payload
func (WordProgress) Kind() Kind { return KindWordProgress }

// Unknown a payload of a kind this version does not know. It is kept as raw
// JSON so it survives drains untouched
type Unknown struct {
	Type Kind
	Raw  json.RawMessage
}

// Kind implements Payload
func (u Unknown) Kind() Kind { return u.Type }

// QueueItem a pending mutation. Items decoded from storage keep their exact
// bytes, so a re-queued item is written back unchanged
type QueueItem struct {
	Type      Kind            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`

	raw json.RawMessage
}

// NewQueueItem encodes the payload into a new item created at the time
func NewQueueItem(p Payload, createdAt time.Time) (qi QueueItem, err error) {
	b, err := json.Marshal(p)
	if err != nil {
		return qi, e.W(err, ECode040201)
	}

	return QueueItem{
		Type:      p.Kind(),
		Payload:   b,
		CreatedAt: FormatTime(createdAt),
	}, nil
}

// Decode returns the typed payload of the item. Unknown kinds decode to Unknown
func (qi QueueItem) Decode() (p Payload, err error) {
	switch qi.Type {
	case KindLessonComplete:
		lc := LessonComplete{}
		if err := json.Unmarshal(qi.Payload, &lc); err != nil {
			return nil, e.W(err, ECode040202)
		}
		return lc, nil
	case KindWordProgress:
		wp := WordProgress{}
		if err := json.Unmarshal(qi.Payload, &wp); err != nil {
			return nil, e.W(err, ECode040203)
		}
		return wp, nil
	default:
		return Unknown{Type: qi.Type, Raw: qi.Payload}, nil
	}
}

// MarshalJSON writes the original bytes for decoded items
func (qi QueueItem) MarshalJSON() ([]byte, error) {
	if len(qi.raw) > 0 {
		return qi.raw, nil
	}

	type plain QueueItem
	return json.Marshal(plain(qi))
}

// UnmarshalJSON keeps the original bytes next to the decoded fields. It never
// fails: a field of the wrong shape is left empty, and a value that is not an
// object has no Type, so the item is carried along as an unknown kind
func (qi *QueueItem) UnmarshalJSON(b []byte) error {
	*qi = QueueItem{raw: append(json.RawMessage(nil), b...)}

	fields := map[string]json.RawMessage{}
	if json.Unmarshal(b, &fields) != nil {
		return nil
	}

	var k string
	if json.Unmarshal(fields["type"], &k) == nil {
		qi.Type = Kind(k)
	}
	if json.Unmarshal(fields["createdAt"], &qi.CreatedAt) != nil {
		qi.CreatedAt = ""
	}
	qi.Payload = fields["payload"]

	return nil
}

// DrainResult the outcome of a drain
type DrainResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}
