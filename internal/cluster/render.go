package cluster

import (
	"html"
	"strings"

	"github.com/couchcryptid/civic-report-service/internal/domain"
)

const (
	baseIconSize   = 20
	iconSizePerHit = 5
	popupDivider   = `<hr class="my-1">`
)

// Marker is everything the map surface needs to draw one cluster.
type Marker struct {
	Position domain.Coord `json:"position"`
	Count    int          `json:"count"`
	IconSize int          `json:"icon_size"`
	Popup    string       `json:"popup"`
}

// Heatmap is one render pass: the clusters and the markers drawn for them.
type Heatmap struct {
	Threshold float64   `json:"threshold"`
	Clusters  []Cluster `json:"clusters"`
	Markers   []Marker  `json:"markers"`
}

// IconSize is the marker diameter in pixels for a cluster of count reports.
func IconSize(count int) int {
	return baseIconSize + iconSizePerHit*count
}

// Popup renders the members as "<b>type</b><br>description" entries in
// membership order. Report text is HTML-escaped.
func Popup(members []domain.Report) string {
	parts := make([]string, len(members))
	for i, r := range members {
		parts[i] = "<b>" + html.EscapeString(string(r.Type)) + "</b><br>" + html.EscapeString(r.Description)
	}
	return strings.Join(parts, popupDivider)
}

// Markers maps clusters to map markers, preserving cluster order.
func Markers(clusters []Cluster) []Marker {
	markers := make([]Marker, len(clusters))
	for i, cl := range clusters {
		markers[i] = Marker{
			Position: cl.Center,
			Count:    cl.Count(),
			IconSize: IconSize(cl.Count()),
			Popup:    Popup(cl.Members),
		}
	}
	return markers
}

// Render clusters reports and builds their markers in one pass.
func Render(reports []domain.Report, threshold float64) Heatmap {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	clusters := Build(reports, threshold)
	return Heatmap{
		Threshold: threshold,
		Clusters:  clusters,
		Markers:   Markers(clusters),
	}
}
