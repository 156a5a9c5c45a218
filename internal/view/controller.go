// Package view is the front-end state machine: which screen is showing, the
// in-memory report sequence, and how each screen renders as text.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/cluster"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/report"
)

// Store is where the controller reads and appends reports.
type Store interface {
	LoadAll(ctx context.Context) ([]domain.Report, error)
	Append(ctx context.Context, r domain.Report) (domain.Report, error)
}

// ErrNotOnForm is returned by Submit when the report form is not showing.
var ErrNotOnForm = errors.New("report form is not open")

// Controller tracks the current screen and the loaded reports.
type Controller struct {
	store     Store
	threshold float64
	zone      *time.Location
	logger    *slog.Logger

	screen  Screen
	reports []domain.Report
}

// NewController starts on the menu with no reports loaded. Times in the list
// are shown in zone; nil means time.Local.
func NewController(store Store, threshold float64, zone *time.Location, logger *slog.Logger) *Controller {
	if zone == nil {
		zone = time.Local
	}
	return &Controller{
		store:     store,
		threshold: threshold,
		zone:      zone,
		logger:    logger,
		screen:    Menu,
		reports:   []domain.Report{},
	}
}

// Load replaces the in-memory sequence with the store's. A failed load leaves
// the sequence empty.
func (c *Controller) Load(ctx context.Context) {
	reports, err := c.store.LoadAll(ctx)
	if err != nil {
		c.logger.Error("load reports failed, starting empty", "error", err)
		reports = nil
	}
	c.reports = append([]domain.Report{}, reports...)
}

// Screen returns the screen being shown.
func (c *Controller) Screen() Screen { return c.screen }

// Reports returns a copy of the in-memory sequence.
func (c *Controller) Reports() []domain.Report {
	return slices.Clone(c.reports)
}

// Show switches to s.
func (c *Controller) Show(s Screen) { c.screen = s }

// Back returns to the menu.
func (c *Controller) Back() { c.screen = Menu }

// DefaultSubmission is the form's initial state.
func DefaultSubmission() domain.Submission {
	return domain.Submission{
		Type:           domain.IssuePothole,
		Location:       domain.DefaultCenter,
		UseCurrentTime: true,
	}
}

// Submit turns the form contents into a report and appends it to the store.
// On success the stored report joins the in-memory sequence and the menu is
// shown; on failure the form stays open.
func (c *Controller) Submit(ctx context.Context, sub domain.Submission) (domain.Report, error) {
	if c.screen != ReportForm {
		return domain.Report{}, ErrNotOnForm
	}

	r, err := domain.NewReport(sub)
	if err != nil {
		return domain.Report{}, err
	}
	r.ID = report.AssignID(r.ID, c.reports)

	stored, err := c.store.Append(ctx, r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("save report: %w", err)
	}

	c.reports = append(c.reports, stored)
	c.screen = Menu
	c.logger.Debug("report submitted", "report_id", stored.ID, "type", stored.Type)
	return stored, nil
}

// Render writes the current screen.
func (c *Controller) Render(w io.Writer) error {
	switch c.screen {
	case ReportForm:
		return c.renderForm(w)
	case List:
		return c.renderList(w)
	case Heatmap:
		return c.renderHeatmap(w)
	default:
		return c.renderMenu(w)
	}
}

func (c *Controller) renderMenu(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Civic Engagement Platform\n\n")
	b.WriteString("  1) Report a New Issue\n")
	b.WriteString("  2) View All Reported Issues\n")
	b.WriteString("  3) View Issue Heatmap\n")
	b.WriteString("  q) Quit\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Controller) renderForm(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Report an Issue\n\n")
	b.WriteString("Type of Issue:\n")
	for i, t := range domain.IssueTypes() {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, t)
	}
	fmt.Fprintf(&b, "\nLocation defaults to %s\n", formatCoord(domain.DefaultCenter))
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Controller) renderList(w io.Writer) error {
	var b strings.Builder
	b.WriteString("All Reported Issues\n\n")
	if len(c.reports) == 0 {
		b.WriteString("No issues reported yet.\n")
	}
	for i := len(c.reports) - 1; i >= 0; i-- {
		r := c.reports[i]
		fmt.Fprintf(&b, "%s (%s)\n", r.Type, r.Status)
		fmt.Fprintf(&b, "%s\n", r.Description)
		fmt.Fprintf(&b, "Time: %s\n", formatDate(r.Timestamp, c.zone))
		fmt.Fprintf(&b, "Location: %s\n", formatLocation(r.Location))
		if r.Address != "" {
			fmt.Fprintf(&b, "Address: %s\n", r.Address)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Controller) renderHeatmap(w io.Writer) error {
	h := cluster.Render(c.reports, c.threshold)

	var b strings.Builder
	b.WriteString("Issue Heatmap\n\n")
	if len(h.Clusters) == 0 {
		b.WriteString("No located issues to map.\n")
	}
	for i, cl := range h.Clusters {
		m := h.Markers[i]
		fmt.Fprintf(&b, "%s  %d report(s)  %dpx\n", formatCoord(m.Position), m.Count, m.IconSize)
		for _, r := range cl.Members {
			fmt.Fprintf(&b, "  - %s: %s\n", r.Type, r.Description)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// formatDate renders a timestamp like "1 May 2024, 10:00" in zone, or the raw
// text when it cannot be parsed.
func formatDate(ts string, zone *time.Location) string {
	if ts == "" {
		return "N/A"
	}
	t, err := domain.ParseTimestampIn(ts, zone)
	if err != nil {
		return ts
	}
	t = t.In(zone)
	month := t.Format("Jan")
	if t.Month() == time.September {
		month = "Sept"
	}
	return fmt.Sprintf("%d %s %d, %s", t.Day(), month, t.Year(), t.Format("15:04"))
}

func formatLocation(l domain.Location) string {
	c, ok := l.Coord()
	if !ok {
		return "N/A"
	}
	return formatCoord(c)
}

func formatCoord(c domain.Coord) string {
	return fmt.Sprintf("%.5f, %.5f", c.Lat, c.Lon)
}
