package ingest

import (
	"errors"
	"fmt"
)

// ErrDataFetchFailed matches every IngestionFailed via errors.Is.
var ErrDataFetchFailed = errors.New("data fetch failed")

// ErrMalformedRecord is the cause logged for a repaired record.
var ErrMalformedRecord = errors.New("malformed record")

// User-facing replacement messages, one per view region.
const (
	MsgEventsUnavailable  = "Could not load events. Please try refreshing the page."
	MsgSeriesUnavailable  = "Could not load event series."
	MsgTeamUnavailable    = "Could not load team data. Please try refreshing the page."
	MsgFormatsUnavailable = "Event formats currently unavailable."
)

// IngestionFailed is the explicit failure result of loading one data source.
// Nothing from the failed source reaches the caches.
type IngestionFailed struct {
	Source      string
	UserMessage string
	Err         error
}

func (e *IngestionFailed) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestionFailed) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDataFetchFailed) true for any IngestionFailed.
func (e *IngestionFailed) Is(target error) bool {
	return target == ErrDataFetchFailed
}

// Failed builds an IngestionFailed for source with the given user message.
func Failed(source, userMessage string, err error) *IngestionFailed {
	return &IngestionFailed{Source: source, UserMessage: userMessage, Err: err}
}
