package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	appLog "eventsite/internal/log"
	"eventsite/internal/model"
)

// RawEvent is an event record as found in the events document, before
// timestamp normalization. EventTime is kept as the raw JSON token because
// the document may carry seconds, milliseconds or garbage.
type RawEvent struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Tag             string          `json:"tag"`
	Location        string          `json:"location"`
	Description     string          `json:"description"`
	DescriptionHTML string          `json:"description_html"`
	ImagePath       string          `json:"image_path"`
	EventTime       json.RawMessage `json:"event_time"`
	Speakers        []model.Speaker `json:"speakers"`
	Links           *model.Links    `json:"links"`
	CTA             *model.CTA      `json:"cta"`
	GradientClass   string          `json:"gradient_class"`
	TagColorClass   string          `json:"tag_color_class"`

	// malformed is set when some field of the record had the wrong type.
	malformed bool
}

// DecodeEvents parses the events document. A record with a wrong-typed
// field keeps the fields that did parse and is counted as malformed by
// Ingest; only a document that is not a JSON array fails.
func DecodeEvents(body []byte) ([]RawEvent, error) {
	out, bad, err := decodeRecords[RawEvent](body, "event")
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	for _, i := range bad {
		out[i].malformed = true
	}
	return out, nil
}

// DecodeTeam parses the team document and sorts members by name using
// English collation.
func DecodeTeam(body []byte) ([]model.TeamMember, error) {
	out, _, err := decodeRecords[model.TeamMember](body, "team member")
	if err != nil {
		return nil, fmt.Errorf("decode team: %w", err)
	}
	SortTeam(out)
	return out, nil
}

// DecodeFormats parses the event formats document.
func DecodeFormats(body []byte) ([]model.EventFormat, error) {
	out, _, err := decodeRecords[model.EventFormat](body, "event format")
	if err != nil {
		return nil, fmt.Errorf("decode formats: %w", err)
	}
	return out, nil
}

// SortTeam orders members alphabetically by name in place.
func SortTeam(members []model.TeamMember) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(members, func(i, j int) bool {
		return c.CompareString(members[i].Name, members[j].Name) < 0
	})
}

// decodeRecords splits a JSON array and decodes each element on its own,
// so one bad record cannot reject the document. It returns the indexes of
// the records that only partially decoded.
func decodeRecords[T any](body []byte, kind string) ([]T, []int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil, fmt.Errorf("empty document")
	}
	if body[0] != '[' {
		return nil, nil, fmt.Errorf("expected a JSON array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, nil, err
	}

	out := make([]T, len(elems))
	var bad []int
	for i, elem := range elems {
		// On a type mismatch Unmarshal still fills every other field.
		if err := json.Unmarshal(elem, &out[i]); err != nil {
			bad = append(bad, i)
			appLog.Error("malformed "+kind+" record", fmt.Errorf("%w: %v", ErrMalformedRecord, err), "index", i)
		}
	}
	return out, bad, nil
}
