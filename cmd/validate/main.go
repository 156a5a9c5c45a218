// Command validate checks a civic issue reports fixture: every report is well
// formed, IDs are unique, and the heatmap built from the fixture satisfies
// the clustering rules.
//
// Usage:
//
//	go run ./cmd/validate -reports testdata/civic_issues.json
//	go run ./cmd/validate -reports civic_issues.json.zst -threshold 0.001
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/civic-report-service/internal/adapter/filestore"
	"github.com/couchcryptid/civic-report-service/internal/cluster"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/klauspost/compress/zstd"
)

// centroidTolerance allows for float rounding in the running mean.
const centroidTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	reportsPath := flag.String("reports", "", "path to a reports JSON fixture (.zst for compressed)")
	threshold := flag.Float64("threshold", cluster.DefaultThreshold, "clustering distance in degrees")
	flag.Parse()

	if *reportsPath == "" || *threshold <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*reportsPath, *threshold))
}

func run(path string, threshold float64) int {
	fmt.Println("=== Civic Report Fixture Validation ===")
	fmt.Println()

	reports, err := loadReports(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports: %v\n", err)
		return 1
	}

	phases := validate(reports, threshold)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	located := 0
	for _, r := range reports {
		if r.Location.Valid() {
			located++
		}
	}
	fmt.Println()
	fmt.Printf("Reports: %d total, %d located, %d unlocated\n", len(reports), located, len(reports)-located)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(reports []domain.Report, threshold float64) []*phase {
	return []*phase{
		validateSchema(reports),
		validateIdentity(reports),
		validateClustering(reports, threshold),
		validateDeterminism(reports, threshold),
	}
}

// ── Data loading ──

// loadReports reads a fixture strictly: unlike the file store, a corrupt
// document is an error here.
func loadReports(path string) ([]domain.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, filestore.CompressedExt) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}
	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ── Phase 1: every report is well formed ──

func validateSchema(reports []domain.Report) *phase {
	p := &phase{name: "Phase 1: Report schema"}
	for i, r := range reports {
		if r.ID <= 0 {
			p.errorf("report[%d]: id %d is not positive", i, r.ID)
		}
		if !r.Type.Valid() {
			p.errorf("report[%d] id=%d: unknown type %q", i, r.ID, r.Type)
		}
		if strings.TrimSpace(r.Description) == "" {
			p.errorf("report[%d] id=%d: empty description", i, r.ID)
		}
		if _, err := domain.ParseTimestamp(r.Timestamp); err != nil {
			p.errorf("report[%d] id=%d: %v", i, r.ID, err)
		}
		if r.Status != domain.StatusReported {
			p.errorf("report[%d] id=%d: status %q, want %q", i, r.ID, r.Status, domain.StatusReported)
		}
		if c, ok := r.Location.Coord(); ok {
			if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
				p.errorf("report[%d] id=%d: location %v out of range", i, r.ID, c)
			}
		}
	}
	return p
}

// ── Phase 2: IDs are unique ──

func validateIdentity(reports []domain.Report) *phase {
	p := &phase{name: "Phase 2: Report identity"}
	seen := make(map[int64]int, len(reports))
	for i, r := range reports {
		if prev, dup := seen[r.ID]; dup {
			p.errorf("report[%d]: id %d already used by report[%d]", i, r.ID, prev)
			continue
		}
		seen[r.ID] = i
	}
	return p
}

// ── Phase 3: clustering rules ──

func validateClustering(reports []domain.Report, threshold float64) *phase {
	p := &phase{name: "Phase 3: Clustering invariants"}
	h := cluster.Render(reports, threshold)

	if len(h.Markers) != len(h.Clusters) {
		p.errorf("%d markers for %d clusters", len(h.Markers), len(h.Clusters))
		return p
	}

	// Every located report lands in exactly one cluster; unlocated ones in none.
	placed := make(map[int64]int)
	for ci, c := range h.Clusters {
		if c.Count() == 0 {
			p.errorf("cluster[%d] is empty", ci)
			continue
		}

		var sumLat, sumLon float64
		for _, r := range c.Members {
			placed[r.ID]++
			coord, ok := r.Location.Coord()
			if !ok {
				p.errorf("cluster[%d]: unlocated report id=%d included", ci, r.ID)
				continue
			}
			sumLat += coord.Lat
			sumLon += coord.Lon
		}
		n := float64(c.Count())
		if math.Abs(c.Center.Lat-sumLat/n) > centroidTolerance || math.Abs(c.Center.Lon-sumLon/n) > centroidTolerance {
			p.errorf("cluster[%d]: center %.8f, %.8f is not the member mean %.8f, %.8f",
				ci, c.Center.Lat, c.Center.Lon, sumLat/n, sumLon/n)
		}

		m := h.Markers[ci]
		if m.Count != c.Count() {
			p.errorf("marker[%d]: count %d, cluster has %d", ci, m.Count, c.Count())
		}
		if want := cluster.IconSize(c.Count()); m.IconSize != want {
			p.errorf("marker[%d]: icon size %d, want %d", ci, m.IconSize, want)
		}
		if m.Position != c.Center {
			p.errorf("marker[%d]: position differs from cluster center", ci)
		}
	}

	for _, r := range reports {
		n := placed[r.ID]
		switch {
		case r.Location.Valid() && n != 1:
			p.errorf("report id=%d: in %d clusters, want 1", r.ID, n)
		case !r.Location.Valid() && n != 0:
			p.errorf("report id=%d: unlocated but clustered", r.ID)
		}
	}
	return p
}

// ── Phase 4: same input, same heatmap ──

func validateDeterminism(reports []domain.Report, threshold float64) *phase {
	p := &phase{name: "Phase 4: Clustering determinism"}

	first, err := json.Marshal(cluster.Render(reports, threshold))
	if err != nil {
		p.errorf("encode heatmap: %v", err)
		return p
	}
	second, err := json.Marshal(cluster.Render(reports, threshold))
	if err != nil {
		p.errorf("encode heatmap: %v", err)
		return p
	}
	if string(first) != string(second) {
		p.errorf("two renders of the same reports differ")
	}
	return p
}
