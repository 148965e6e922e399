package upstream

import (
	"bytes"
	"encoding/json"
	"time"
)

type Board struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Thread struct {
	ID           int       `json:"id"`
	Message      string    `json:"message"`
	RepliesCount int       `json:"repliesCount"`
	CreatedAt    Timestamp `json:"createdAt"`
	ImageURL     *string   `json:"imageUrl"`
}

// BoardThreads is the board's current thread list, ordered by creation date.
type BoardThreads struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Threads []Thread `json:"threads"`
}

type Reply struct {
	ID        int       `json:"id"`
	Message   string    `json:"message"`
	CreatedAt Timestamp `json:"createdAt"`
}

// ThreadReplies holds a thread and its replies in ascending creation order.
type ThreadReplies struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"createdAt"`
	Replies   []Reply   `json:"replies"`
}

// Timestamp is an optional upstream time. Null, empty and unparseable
// values decode to the zero Timestamp instead of failing the payload.
type Timestamp struct {
	time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	parsed, ok := ParseTimestamp(raw)
	if ok {
		*t = Timestamp{Time: parsed, Valid: true}
	}
	return nil
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO 8601 forms; the latter
// are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}
