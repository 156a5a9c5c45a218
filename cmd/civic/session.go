package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/view"
)

// session drives a view.Controller from line-oriented input.
type session struct {
	ctrl *view.Controller
	in   *bufio.Scanner
	out  io.Writer
}

func newSession(ctrl *view.Controller, in io.Reader, out io.Writer) *session {
	return &session{ctrl: ctrl, in: bufio.NewScanner(in), out: out}
}

// errQuit ends the session without an error.
var errQuit = errors.New("quit")

func (s *session) run(ctx context.Context) error {
	s.ctrl.Load(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := s.ctrl.Render(s.out); err != nil {
			return err
		}
		choice, err := s.prompt("> ")
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(choice) {
		case "1":
			s.ctrl.Show(view.ReportForm)
			err = s.reportForm(ctx)
		case "2":
			err = s.browse(ctx, view.List)
		case "3":
			err = s.browse(ctx, view.Heatmap)
		case "q", "quit":
			return nil
		default:
			fmt.Fprintf(s.out, "Unknown option %q\n\n", choice)
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *session) browse(ctx context.Context, screen view.Screen) error {
	s.ctrl.Load(ctx)
	s.ctrl.Show(screen)
	if err := s.ctrl.Render(s.out); err != nil {
		return err
	}
	_, err := s.prompt("Press Enter to go back ")
	s.ctrl.Back()
	return err
}

func (s *session) reportForm(ctx context.Context) error {
	if err := s.ctrl.Render(s.out); err != nil {
		return err
	}
	sub := view.DefaultSubmission()
	types := domain.IssueTypes()

	answer, err := s.prompt(fmt.Sprintf("Type [1-%d, default 1]: ", len(types)))
	if err != nil {
		return err
	}
	if answer != "" {
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 1 || n > len(types) {
			return s.abandon("Invalid issue type.")
		}
		sub.Type = types[n-1]
	}

	if sub.Description, err = s.prompt("Description: "); err != nil {
		return err
	}

	answer, err = s.prompt("Location as lat, lon [default]: ")
	if err != nil {
		return err
	}
	if answer != "" {
		c, ok := parseCoord(answer)
		if !ok {
			return s.abandon("Invalid location.")
		}
		sub.Location = c
	}

	answer, err = s.prompt("Date and time as YYYY-MM-DDTHH:MM [now]: ")
	if err != nil {
		return err
	}
	if answer != "" {
		sub.UseCurrentTime = false
		sub.ManualTime = answer
	}

	r, err := s.ctrl.Submit(ctx, sub)
	if err != nil {
		return s.abandon(fmt.Sprintf("Report not saved: %v", err))
	}
	fmt.Fprintf(s.out, "Issue reported successfully! (id %d)\n\n", r.ID)
	return nil
}

// abandon prints msg and returns to the menu.
func (s *session) abandon(msg string) error {
	fmt.Fprintf(s.out, "%s\n\n", msg)
	s.ctrl.Back()
	return nil
}

func (s *session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func parseCoord(s string) (domain.Coord, bool) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coord{}, false
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	c := domain.Coord{Lat: la, Lon: lo}
	if err1 != nil || err2 != nil || !c.Finite() || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return domain.Coord{}, false
	}
	return c, true
}
