package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// IssueType is one of the fixed report categories offered by the form.
type IssueType string

const (
	IssuePothole         IssueType = "Pothole"
	IssueStreetlight     IssueType = "Broken Streetlight"
	IssueLitter          IssueType = "Trash/Litter"
	IssueGraffiti        IssueType = "Graffiti"
	IssuePublicTransport IssueType = "Public Transportation"
	IssueOther           IssueType = "Other"
)

var issueTypes = []IssueType{
	IssuePothole,
	IssueStreetlight,
	IssueLitter,
	IssueGraffiti,
	IssuePublicTransport,
	IssueOther,
}

// IssueTypes returns the categories in form order.
func IssueTypes() []IssueType {
	out := make([]IssueType, len(issueTypes))
	copy(out, issueTypes)
	return out
}

// Status is a report's lifecycle tag.
type Status string

// StatusReported is the only status a report can hold.
const StatusReported Status = "Reported"

// DefaultCenter is the Deepdale coordinate the form's map picker starts on.
var DefaultCenter = Coord{Lat: 53.765, Lon: -2.685}

// Report is a single citizen-submitted issue.
type Report struct {
	ID          int64     `json:"id"`
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	Location    Location  `json:"location"`
	Timestamp   string    `json:"timestamp"`
	Status      Status    `json:"status"`

	// Reverse-geocoded place name, empty when enrichment is off or failed.
	Address string `json:"address,omitempty"`
}

// Coord is a WGS-84 latitude/longitude pair, encoded as [lat, lon].
type Coord struct {
	Lat float64
	Lon float64
}

// Finite reports whether both components are real numbers.
func (c Coord) Finite() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) && !math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	pair, ok := parseCoordPair(data)
	if !ok {
		return fmt.Errorf("coordinate must be a [lat, lon] pair, got %s", data)
	}
	*c = pair
	return nil
}

// Location is the raw "location" value of a report. Only a two-element array of
// numbers is a usable coordinate; anything else is preserved for round-tripping.
type Location struct {
	raw   json.RawMessage
	coord Coord
	ok    bool
}

// NewLocation returns a well-formed location at lat/lon. A NaN or infinite
// value yields a location that is not Valid.
func NewLocation(lat, lon float64) Location {
	c := Coord{Lat: lat, Lon: lon}
	if !c.Finite() {
		return Location{}
	}
	return Location{coord: c, ok: true}
}

// Coord returns the coordinate pair and whether the location is well formed.
func (l Location) Coord() (Coord, bool) {
	return l.coord, l.ok
}

// Valid reports whether the location is a usable [lat, lon] pair.
func (l Location) Valid() bool { return l.ok }

func (l Location) MarshalJSON() ([]byte, error) {
	if l.ok {
		return l.coord.MarshalJSON()
	}
	if len(l.raw) > 0 {
		return l.raw, nil
	}
	return []byte("null"), nil
}

func (l *Location) UnmarshalJSON(data []byte) error {
	if c, ok := parseCoordPair(data); ok {
		*l = Location{coord: c, ok: true}
		return nil
	}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Location{}
		return nil
	}
	*l = Location{raw: append(json.RawMessage(nil), data...)}
	return nil
}

// Equal compares the encoded form, so a parsed location equals one built with NewLocation.
func (l Location) Equal(other Location) bool {
	if l.ok || other.ok {
		return l.ok == other.ok && l.coord == other.coord
	}
	return bytes.Equal(l.raw, other.raw)
}

func parseCoordPair(data []byte) (Coord, bool) {
	var parts []any
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) != 2 {
		return Coord{}, false
	}
	lat, latOK := parts[0].(float64)
	lon, lonOK := parts[1].(float64)
	if !latOK || !lonOK {
		return Coord{}, false
	}
	c := Coord{Lat: lat, Lon: lon}
	return c, c.Finite()
}

// Submission is what the reporting form collects before a report exists.
type Submission struct {
	Type           IssueType
	Description    string
	Location       Coord
	UseCurrentTime bool
	ManualTime     string
}

// RawEvent represents an unprocessed submission read from the intake topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form of an accepted report destined for the reports topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
