// Command civic is a terminal client for reporting and browsing civic issues.
//
// Usage:
//
//	go run ./cmd/civic -server http://localhost:8080
//	go run ./cmd/civic -file civic_issues.json
//	go run ./cmd/civic -memory
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/adapter/filestore"
	"github.com/couchcryptid/civic-report-service/internal/adapter/memory"
	"github.com/couchcryptid/civic-report-service/internal/adapter/remote"
	"github.com/couchcryptid/civic-report-service/internal/cluster"
	"github.com/couchcryptid/civic-report-service/internal/view"
)

func main() {
	server := flag.String("server", "", "base URL of a civic-report-service instance")
	file := flag.String("file", "", "local JSON report file (.zst for compressed)")
	inMemory := flag.Bool("memory", false, "keep reports in memory only")
	threshold := flag.Float64("threshold", cluster.DefaultThreshold, "heatmap clustering distance in degrees")
	timeout := flag.Duration("timeout", 10*time.Second, "remote request timeout")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := openStore(*server, *file, *inMemory, *timeout, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl := view.NewController(store, *threshold, time.Local, logger)
	if err := newSession(ctrl, os.Stdin, os.Stdout).run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(server, file string, inMemory bool, timeout time.Duration, logger *slog.Logger) (view.Store, error) {
	chosen := 0
	for _, set := range []bool{server != "", file != "", inMemory} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, fmt.Errorf("exactly one of -server, -file or -memory is required")
	}

	switch {
	case server != "":
		return remote.NewStore(server, timeout), nil
	case file != "":
		s, err := filestore.NewStore(file, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return memory.NewStore(), nil
	}
}
