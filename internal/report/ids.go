package report

import (
	"github.com/couchcryptid/civic-report-service/internal/domain"
)

// AssignID keeps candidate when it is positive and unused, otherwise falls back
// to the current time in milliseconds. A collision moves past the largest ID
// in use.
func AssignID(candidate int64, existing []domain.Report) int64 {
	if candidate <= 0 {
		candidate = domain.Now().UnixMilli()
	}

	var maxID int64
	taken := false
	for _, r := range existing {
		if r.ID == candidate {
			taken = true
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	if !taken {
		return candidate
	}
	return maxID + 1
}

// isRedelivery reports whether r, as read from the intake topic before any
// server defaults, is already stored. Only the fields the message carried are
// compared: a message without a timestamp matches on its other fields, and one
// without an ID matches any stored report with the same content.
func isRedelivery(r domain.Report, existing []domain.Report) bool {
	t, _ := domain.ParseIssueType(string(r.Type))
	for _, e := range existing {
		if r.ID > 0 && e.ID != r.ID {
			continue
		}
		if r.Timestamp != "" && e.Timestamp != r.Timestamp {
			continue
		}
		if e.Type == t && e.Description == r.Description && e.Location.Equal(r.Location) {
			return true
		}
	}
	return false
}
