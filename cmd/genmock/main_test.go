package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFixedClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func encode(t *testing.T, reports []domain.Report) string {
	t.Helper()
	data, err := json.Marshal(reports)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_Deterministic(t *testing.T) {
	withFixedClock(t)
	opts := options{count: 50, seed: 7, unlocated: 0.2, jitter: 0.0003}

	a := encode(t, generate(opts))
	b := encode(t, generate(opts))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("generate not deterministic (-first +second):\n%s", diff)
	}

	opts.seed = 8
	assert.NotEqual(t, a, encode(t, generate(opts)))
}

func TestGenerate_Reports(t *testing.T) {
	withFixedClock(t)
	reports := generate(options{count: 40, seed: 3, unlocated: 0.25, jitter: 0.0003})
	require.Len(t, reports, 40)

	assert.Equal(t, baseTime.UnixMilli(), reports[0].ID)
	seen := map[int64]bool{}
	var last time.Time
	for _, r := range reports {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true

		_, err := domain.PrepareReport(r)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReported, r.Status)

		ts, err := domain.ParseTimestamp(r.Timestamp)
		require.NoError(t, err)
		assert.True(t, ts.After(last))
		last = ts

		if c, ok := r.Location.Coord(); ok {
			assert.InDelta(t, domain.DefaultCenter.Lat, c.Lat, 0.01)
			assert.InDelta(t, domain.DefaultCenter.Lon, c.Lon, 0.01)
		}
	}
}

func TestGenerate_UnlocatedShare(t *testing.T) {
	withFixedClock(t)

	none := generate(options{count: 30, seed: 1, unlocated: 0})
	for _, r := range none {
		assert.True(t, r.Location.Valid())
	}

	all := generate(options{count: 30, seed: 1, unlocated: 1})
	for _, r := range all {
		assert.False(t, r.Location.Valid())
	}
}

func TestWriteJSON(t *testing.T) {
	withFixedClock(t)
	path := filepath.Join(t.TempDir(), "nested", "fixture.json")
	reports := generate(options{count: 3, seed: 1, unlocated: 0, jitter: 0.0003})

	require.NoError(t, writeJSON(path, reports))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []domain.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)
}

func TestRound5(t *testing.T) {
	assert.InDelta(t, 53.76512, round5(53.765123), 1e-12)
	assert.InDelta(t, -2.68513, round5(-2.685126), 1e-12)
}
