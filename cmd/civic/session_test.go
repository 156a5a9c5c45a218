package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/adapter/memory"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/view"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSession(t *testing.T, store *memory.Store, input string) string {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	ctrl := view.NewController(store, 0, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var out bytes.Buffer
	require.NoError(t, newSession(ctrl, strings.NewReader(input), &out).run(context.Background()))
	return out.String()
}

func TestSession_ReportWithDefaults(t *testing.T) {
	store := memory.NewStore()
	out := runSession(t, store, "1\n\nPothole on Deepdale Road\n\n\nq\n")

	assert.Contains(t, out, "Issue reported successfully! (id 1714557600000)")
	reports, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, domain.IssuePothole, r.Type)
	assert.Equal(t, "Pothole on Deepdale Road", r.Description)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", r.Timestamp)
	c, ok := r.Location.Coord()
	require.True(t, ok)
	assert.Equal(t, domain.DefaultCenter, c)
}

func TestSession_ReportWithChoices(t *testing.T) {
	store := memory.NewStore()
	runSession(t, store, "1\n4\nTag on the bus shelter\n53.7601, -2.7002\n2024-04-30T18:45\nq\n")

	reports, _ := store.LoadAll(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, domain.IssueGraffiti, reports[0].Type)
	assert.Equal(t, "2024-04-30T18:45", reports[0].Timestamp)
	c, _ := reports[0].Location.Coord()
	assert.Equal(t, domain.Coord{Lat: 53.7601, Lon: -2.7002}, c)
}

func TestSession_InvalidInputReturnsToMenu(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad type", "1\n9\nq\n", "Invalid issue type."},
		{"bad location", "1\n1\nHole\n91, 0\nq\n", "Invalid location."},
		{"non-finite location", "1\n1\nHole\nNaN, NaN\nq\n", "Invalid location."},
		{"empty description", "1\n1\n\n\n\nq\n", "Report not saved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			out := runSession(t, store, tt.input)
			assert.Contains(t, out, tt.want)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestSession_ListAndHeatmap(t *testing.T) {
	store := memory.NewStore(domain.Report{
		ID:          1,
		Type:        domain.IssueLitter,
		Description: "Overflowing bin",
		Location:    domain.NewLocation(53.765, -2.685),
		Timestamp:   "2024-05-01T09:00:00.000Z",
		Status:      domain.StatusReported,
	})
	out := runSession(t, store, "2\n\n3\n\nq\n")

	assert.Contains(t, out, "Trash/Litter (Reported)\nOverflowing bin\n")
	assert.Contains(t, out, "53.76500, -2.68500  1 report(s)  25px")
}

func TestSession_EndOfInputQuits(t *testing.T) {
	out := runSession(t, memory.NewStore(), "")
	assert.Contains(t, out, "Civic Engagement Platform")
}

func TestParseCoord(t *testing.T) {
	c, ok := parseCoord(" 53.765 , -2.685 ")
	require.True(t, ok)
	assert.Equal(t, domain.Coord{Lat: 53.765, Lon: -2.685}, c)

	for _, bad := range []string{"53.765", "a, b", "91, 0", "0, 181", "NaN, NaN", "NaN, 0", "0, +Inf", "-Inf, 1"} {
		_, ok := parseCoord(bad)
		assert.False(t, ok, bad)
	}
}
