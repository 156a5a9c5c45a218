package view

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/adapter/memory"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) LoadAll(context.Context) ([]domain.Report, error) {
	return nil, errors.New("unreadable")
}

func (brokenStore) Append(context.Context, domain.Report) (domain.Report, error) {
	return domain.Report{}, errors.New("read-only")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var frozen = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newController(t *testing.T, store Store) *Controller {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })
	return NewController(store, 0, time.UTC, discardLogger())
}

func render(t *testing.T, c *Controller) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	return buf.String()
}

func TestController_Navigation(t *testing.T) {
	c := newController(t, memory.NewStore())
	assert.Equal(t, Menu, c.Screen())

	c.Show(List)
	assert.Equal(t, List, c.Screen())
	assert.Contains(t, render(t, c), "All Reported Issues")

	c.Back()
	assert.Equal(t, Menu, c.Screen())
	assert.Contains(t, render(t, c), "Civic Engagement Platform")
}

func TestController_LoadFailureStartsEmpty(t *testing.T) {
	c := newController(t, brokenStore{})
	c.Load(context.Background())
	assert.Empty(t, c.Reports())
}

func TestController_SubmitAppendsAndReturnsToMenu(t *testing.T) {
	store := memory.NewStore()
	c := newController(t, store)
	c.Show(ReportForm)

	sub := DefaultSubmission()
	sub.Description = "Pothole outside the stadium"

	got, err := c.Submit(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, Menu, c.Screen())
	assert.Equal(t, frozen.UnixMilli(), got.ID)
	assert.Equal(t, domain.IssuePothole, got.Type)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", got.Timestamp)
	coord, ok := got.Location.Coord()
	require.True(t, ok)
	assert.Equal(t, domain.DefaultCenter, coord)

	require.Len(t, c.Reports(), 1)
	assert.Equal(t, 1, store.Len())
}

func TestController_SubmitValidationKeepsForm(t *testing.T) {
	store := memory.NewStore()
	c := newController(t, store)
	c.Show(ReportForm)

	_, err := c.Submit(context.Background(), DefaultSubmission())
	require.ErrorIs(t, err, domain.ErrInvalidReport)
	assert.Equal(t, ReportForm, c.Screen())
	assert.Zero(t, store.Len())
}

func TestController_SubmitManualTime(t *testing.T) {
	c := newController(t, memory.NewStore())
	c.Show(ReportForm)

	sub := DefaultSubmission()
	sub.Description = "Bin overflowing"
	sub.Type = domain.IssueLitter
	sub.UseCurrentTime = false
	sub.ManualTime = "2024-04-30T18:45"

	got, err := c.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30T18:45", got.Timestamp)
}

func TestController_SubmitStoreFailureKeepsForm(t *testing.T) {
	c := newController(t, brokenStore{})
	c.Show(ReportForm)

	sub := DefaultSubmission()
	sub.Description = "x"
	_, err := c.Submit(context.Background(), sub)
	require.Error(t, err)
	assert.Equal(t, ReportForm, c.Screen())
	assert.Empty(t, c.Reports())
}

func TestController_SubmitRequiresForm(t *testing.T) {
	c := newController(t, memory.NewStore())
	_, err := c.Submit(context.Background(), DefaultSubmission())
	require.ErrorIs(t, err, ErrNotOnForm)
}

func TestController_SubmitSameMillisecondGetsNewID(t *testing.T) {
	c := newController(t, memory.NewStore())
	sub := DefaultSubmission()
	sub.Description = "x"

	c.Show(ReportForm)
	first, err := c.Submit(context.Background(), sub)
	require.NoError(t, err)
	c.Show(ReportForm)
	second, err := c.Submit(context.Background(), sub)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestController_RenderListNewestFirst(t *testing.T) {
	var noPin domain.Location
	require.NoError(t, json.Unmarshal([]byte(`"unknown"`), &noPin))

	store := memory.NewStore(
		domain.Report{ID: 1, Type: domain.IssuePothole, Description: "first", Location: domain.NewLocation(53.765, -2.685), Timestamp: "2024-05-01T10:00:00.000Z", Status: domain.StatusReported},
		domain.Report{ID: 2, Type: domain.IssueGraffiti, Description: "second", Location: noPin, Timestamp: "2024-09-03T08:05:00.000Z", Status: domain.StatusReported},
		domain.Report{ID: 3, Type: domain.IssueOther, Description: "third", Location: domain.NewLocation(53.7651234, -2.6849876), Timestamp: "", Status: domain.StatusReported, Address: "Deepdale, Preston"},
	)
	c := newController(t, store)
	c.Load(context.Background())
	c.Show(List)

	out := render(t, c)
	want := "All Reported Issues\n\n" +
		"Other (Reported)\nthird\nTime: N/A\nLocation: 53.76512, -2.68499\nAddress: Deepdale, Preston\n\n" +
		"Graffiti (Reported)\nsecond\nTime: 3 Sept 2024, 08:05\nLocation: N/A\n\n" +
		"Pothole (Reported)\nfirst\nTime: 1 May 2024, 10:00\nLocation: 53.76500, -2.68500\n\n"
	assert.Equal(t, want, out)
}

func TestController_RenderListEmpty(t *testing.T) {
	c := newController(t, memory.NewStore())
	c.Show(List)
	assert.Contains(t, render(t, c), "No issues reported yet.")
}

func TestController_RenderHeatmap(t *testing.T) {
	store := memory.NewStore(
		domain.Report{ID: 1, Type: domain.IssuePothole, Description: "A", Location: domain.NewLocation(53.7650, -2.6850)},
		domain.Report{ID: 2, Type: domain.IssueGraffiti, Description: "B", Location: domain.NewLocation(53.7651, -2.6849)},
		domain.Report{ID: 3, Type: domain.IssueOther, Description: "C", Location: domain.NewLocation(53.8000, -2.7000)},
	)
	c := newController(t, store)
	c.Load(context.Background())
	c.Show(Heatmap)

	out := render(t, c)
	assert.Contains(t, out, "53.76505, -2.68495  2 report(s)  30px\n  - Pothole: A\n  - Graffiti: B\n")
	assert.Contains(t, out, "53.80000, -2.70000  1 report(s)  25px\n  - Other: C\n")
}

func TestController_RenderHeatmapEmpty(t *testing.T) {
	c := newController(t, memory.NewStore())
	c.Show(Heatmap)
	assert.Contains(t, render(t, c), "No located issues to map.")
}

func TestController_RenderForm(t *testing.T) {
	c := newController(t, memory.NewStore())
	c.Show(ReportForm)

	out := render(t, c)
	assert.Contains(t, out, "  1) Pothole\n")
	assert.Contains(t, out, "  6) Other\n")
	assert.Contains(t, out, "Location defaults to 53.76500, -2.68500")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "N/A", formatDate("", time.UTC))
	assert.Equal(t, "last tuesday", formatDate("last tuesday", time.UTC))
	assert.Equal(t, "1 May 2024, 11:00", formatDate("2024-05-01T10:00:00.000Z", time.FixedZone("BST", 3600)))
	assert.Equal(t, "30 Apr 2024, 18:45", formatDate("2024-04-30T18:45", time.FixedZone("BST", 3600)))
}
