package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the submission-time format, matching JavaScript's toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrInvalidReport marks a submission rejected by validation.
var ErrInvalidReport = errors.New("invalid report")

var manualTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseIssueType matches s against the known categories, ignoring case and
// surrounding whitespace.
func ParseIssueType(s string) (IssueType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range issueTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Valid reports whether t is one of the fixed categories.
func (t IssueType) Valid() bool {
	for _, known := range issueTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTimestamp reads a report timestamp in any accepted form. Timestamps
// without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return ParseTimestampIn(s, time.UTC)
}

// ParseTimestampIn is ParseTimestamp with timestamps lacking an offset read in loc.
func ParseTimestampIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range manualTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t in the submission-time format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// PrepareReport validates a submitted report and fills in what the server owns:
// the status, and the timestamp when none was supplied. The ID is left for the
// store's owner to assign.
func PrepareReport(r Report) (Report, error) {
	if strings.TrimSpace(r.Description) == "" {
		return Report{}, fmt.Errorf("%w: description is required", ErrInvalidReport)
	}

	if r.Type == "" {
		return Report{}, fmt.Errorf("%w: type is required", ErrInvalidReport)
	}
	t, ok := ParseIssueType(string(r.Type))
	if !ok {
		return Report{}, fmt.Errorf("%w: unknown issue type %q", ErrInvalidReport, r.Type)
	}
	r.Type = t

	if strings.TrimSpace(r.Timestamp) == "" {
		r.Timestamp = FormatTimestamp(clock.Now())
	} else if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	r.Status = StatusReported
	return r, nil
}

// NewReport builds a report from a form submission, stamped with the current time.
func NewReport(sub Submission) (Report, error) {
	c := sub.Location
	if !c.Finite() || c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return Report{}, fmt.Errorf("%w: location %v, %v is not a valid coordinate", ErrInvalidReport, c.Lat, c.Lon)
	}
	now := clock.Now()

	r := Report{
		ID:          now.UnixMilli(),
		Type:        sub.Type,
		Description: sub.Description,
		Location:    NewLocation(sub.Location.Lat, sub.Location.Lon),
	}
	if sub.UseCurrentTime {
		r.Timestamp = FormatTimestamp(now)
	} else {
		if strings.TrimSpace(sub.ManualTime) == "" {
			return Report{}, fmt.Errorf("%w: manual time is required", ErrInvalidReport)
		}
		r.Timestamp = sub.ManualTime
	}

	return PrepareReport(r)
}

// ParseRawEvent deserializes an intake message into a report.
func ParseRawEvent(raw RawEvent) (Report, error) {
	if len(raw.Value) == 0 {
		return Report{}, errors.New("parse raw event: empty payload")
	}
	var r Report
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return Report{}, fmt.Errorf("parse raw event: %w", err)
	}
	return r, nil
}

// SerializeReport converts an accepted report into an OutputEvent keyed by its ID.
func SerializeReport(r Report) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(strconv.FormatInt(r.ID, 10)),
		Value: data,
		Headers: map[string]string{
			"issue_type":  string(r.Type),
			"reported_at": r.Timestamp,
		},
	}, nil
}
