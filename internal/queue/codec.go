package queue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/request-queue/internal/domain"
)

// recordVersion is written into every snapshot record. Records without a
// version predate versioning and decode as version 1.
const recordVersion = 1

type record struct {
	V         int             `json:"v,omitempty"`
	ID        string          `json:"id,omitempty"`
	Tag       string          `json:"tag"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Encode serializes items as a JSON array of records. Items that fail to
// serialize are left out; the rest are still written in order.
func Encode(items []domain.Item) string {
	records := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(record{
			V:         recordVersion,
			ID:        item.ID,
			Tag:       item.Tag,
			Payload:   item.Payload,
			CreatedAt: item.CreatedAt,
		})
		if err != nil {
			continue
		}
		records = append(records, b)
	}

	out, err := json.Marshal(records)
	if err != nil {
		return "[]"
	}
	return string(out)
}

// Decode parses a blob produced by Encode. An empty or unparsable blob is an
// empty queue. Entries that are not valid records are skipped. Records written
// without an id get a fresh one, since the dispatcher retires requests by ID.
func Decode(blob string) []domain.Item {
	items := []domain.Item{}
	if strings.TrimSpace(blob) == "" {
		return items
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return items
	}

	for _, entry := range raw {
		var rec record
		if err := json.Unmarshal(entry, &rec); err != nil {
			continue
		}
		if rec.V > recordVersion || rec.Tag == "" {
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		items = append(items, domain.Item{
			ID:        rec.ID,
			Tag:       rec.Tag,
			Payload:   rec.Payload,
			CreatedAt: rec.CreatedAt,
		})
	}
	return items
}
