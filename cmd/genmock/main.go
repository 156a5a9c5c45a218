// Command genmock writes a deterministic fixture of civic issue reports
// scattered around Deepdale, Preston. Reports gather around a handful of
// hotspots so the heatmap has clusters of different sizes, and a share of
// them carry no usable location.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/civic_issues.json -n 200 -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/cluster"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// baseTime is the first report's timestamp; later reports follow it.
var baseTime = time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)

// hotspots are offsets from domain.DefaultCenter in degrees.
var hotspots = []domain.Coord{
	{Lat: 0, Lon: 0},
	{Lat: 0.0031, Lon: -0.0042},
	{Lat: -0.0024, Lon: 0.0037},
	{Lat: 0.0058, Lon: 0.0011},
}

var descriptions = map[domain.IssueType][]string{
	domain.IssuePothole:         {"Deep pothole in the left lane", "Crumbling road edge by the kerb", "Pothole outside the school gates"},
	domain.IssueStreetlight:     {"Streetlight flickering all night", "Lamp post out on the corner", "Light stays on during the day"},
	domain.IssueLitter:          {"Overflowing bin", "Fly-tipped mattress", "Litter along the footpath"},
	domain.IssueGraffiti:        {"Tag on the bus shelter", "Spray paint on the underpass", "Graffiti on the park wall"},
	domain.IssuePublicTransport: {"Bus stop timetable missing", "Shelter glass smashed", "Bus never turned up"},
	domain.IssueOther:           {"Blocked drain", "Fallen tree branch", "Broken bench"},
}

type options struct {
	count     int
	seed      uint64
	unlocated float64
	jitter    float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the reports fixture")
	count := flag.Int("n", 100, "number of reports")
	seed := flag.Uint64("seed", 1, "random seed")
	unlocated := flag.Float64("unlocated", 0.1, "share of reports without a usable location")
	jitter := flag.Float64("jitter", 0.0003, "max distance from a hotspot in degrees")
	flag.Parse()

	if *out == "" || *count < 0 || *unlocated < 0 || *unlocated > 1 {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -out is required, -n >= 0, 0 <= -unlocated <= 1")
	}

	// Set a fixed clock for reproducible output.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	defer domain.SetClock(nil)

	reports := generate(options{count: *count, seed: *seed, unlocated: *unlocated, jitter: *jitter})

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(reports)
	return nil
}

func generate(opts options) []domain.Report {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x5eed))
	types := domain.IssueTypes()

	reports := make([]domain.Report, 0, opts.count)
	at := domain.Now()
	for i := range opts.count {
		typ := types[rng.IntN(len(types))]
		texts := descriptions[typ]

		r := domain.Report{
			ID:          at.UnixMilli(),
			Type:        typ,
			Description: texts[rng.IntN(len(texts))],
			Timestamp:   domain.FormatTimestamp(at),
			Status:      domain.StatusReported,
		}
		if rng.Float64() >= opts.unlocated {
			h := hotspots[rng.IntN(len(hotspots))]
			r.Location = domain.NewLocation(
				round5(domain.DefaultCenter.Lat+h.Lat+(rng.Float64()*2-1)*opts.jitter),
				round5(domain.DefaultCenter.Lon+h.Lon+(rng.Float64()*2-1)*opts.jitter),
			)
		} else if i%2 == 1 {
			_ = r.Location.UnmarshalJSON([]byte(`"unknown"`))
		}
		reports = append(reports, r)

		at = at.Add(time.Duration(5+rng.IntN(115)) * time.Minute)
	}
	return reports
}

func round5(v float64) float64 {
	const scale = 1e5
	if v < 0 {
		return -float64(int64(-v*scale+0.5)) / scale
	}
	return float64(int64(v*scale+0.5)) / scale
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(reports []domain.Report) {
	typeCounts := map[domain.IssueType]int{}
	located := 0
	for _, r := range reports {
		typeCounts[r.Type]++
		if r.Location.Valid() {
			located++
		}
	}

	h := cluster.Render(reports, cluster.DefaultThreshold)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (located %d, unlocated %d)\n", len(reports), located, len(reports)-located)
	for _, t := range domain.IssueTypes() {
		fmt.Printf("  %-22s %d\n", t, typeCounts[t])
	}
	fmt.Printf("Clusters at %g: %d\n", cluster.DefaultThreshold, len(h.Clusters))
	for _, c := range h.Clusters {
		fmt.Printf("  %.5f, %.5f  %d\n", c.Center.Lat, c.Center.Lon, c.Count())
	}
}
