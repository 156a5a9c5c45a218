// Package domain models citizen issue reports and the rules for accepting them.
//
// # Report Shape
//
// A report is the flat JSON object produced by the reporting form:
//
//	{"id": 1714557000000, "type": "Pothole", "description": "Deep hole by the bus stop",
//	 "location": [53.765, -2.685], "timestamp": "2024-05-01T09:50:00.000Z", "status": "Reported"}
//
// Identifiers are creation-time Unix milliseconds. The store only guarantees they
// are unique; the report service bumps a colliding identifier past the largest one
// it has seen.
//
// # Locations
//
// "location" is a [latitude, longitude] pair in raw WGS-84 degrees. Older records
// and third-party submitters sometimes send other shapes (null, a string, a one
// element array). Those values are kept verbatim so they round-trip through every
// store, but [Location.Coord] reports them as absent and the heatmap skips them.
//
// # Timestamps
//
// Submission time is captured as a millisecond-precision UTC instant
// ("2006-01-02T15:04:05.000Z"). Manually entered times are accepted in RFC 3339 or
// in the HTML datetime-local form ("2006-01-02T15:04", optional seconds), which
// carries no zone and is read as UTC. The original text is stored unchanged.
//
// # Lifecycle
//
// Reports are append-only. Status is fixed to "Reported" at creation and no
// transitions exist.
package domain
