package audit

import (
	"time"

	"github.com/goccy/go-json"
)

// TimestampFormat is the time format used for event timestamps.
const TimestampFormat = time.RFC3339Nano

// eventJSON is the wire form; optional fields are pointers so they are
// omitted when empty.
type eventJSON struct {
	Timestamp string            `json:"timestamp"`
	SessionID SessionID         `json:"sessionId,omitempty"`
	EventType EventType         `json:"eventType"`
	Title     *string           `json:"title,omitempty"`
	User      *string           `json:"user,omitempty"`
	Rating    *int              `json:"rating,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler for Event.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp: e.Timestamp.UTC().Format(TimestampFormat),
		SessionID: e.SessionID,
		EventType: e.EventType,
		Metadata:  e.Metadata,
	}

	if e.Title != "" {
		ej.Title = &e.Title
	}
	if e.User != "" {
		ej.User = &e.User
	}
	if e.Rating != 0 {
		ej.Rating = &e.Rating
	}

	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	e.Timestamp = t
	e.SessionID = ej.SessionID
	e.EventType = ej.EventType
	e.Metadata = ej.Metadata
	e.Title, e.User, e.Rating = "", "", 0

	if ej.Title != nil {
		e.Title = *ej.Title
	}
	if ej.User != nil {
		e.User = *ej.User
	}
	if ej.Rating != nil {
		e.Rating = *ej.Rating
	}

	return nil
}

// UnmarshalJSONLine parses one line of the journal.
func UnmarshalJSONLine(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
