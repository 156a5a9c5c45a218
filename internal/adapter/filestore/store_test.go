package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, name string) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), name), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(id int64) domain.Report {
	return domain.Report{
		ID:          id,
		Type:        domain.IssuePothole,
		Description: "Deep pothole",
		Location:    domain.NewLocation(53.765, -2.685),
		Timestamp:   "2024-05-01T10:00:00.000Z",
		Status:      domain.StatusReported,
	}
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s := newStore(t, "civic_issues.json")

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_CorruptFileIsEmpty(t *testing.T) {
	s := newStore(t, "civic_issues.json")
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_AppendThenLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "civic_issues.json")

	want := []domain.Report{sampleReport(1), sampleReport(2)}
	for _, r := range want {
		_, err := s.Append(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadAll mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DocumentFormat(t *testing.T) {
	s := newStore(t, "civic_issues.json")
	_, err := s.Append(context.Background(), sampleReport(1714557600000))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.Contains(t, string(data), "[\n    {\n        \"id\": 1714557600000,")
	assert.JSONEq(t, `[{
		"id": 1714557600000,
		"type": "Pothole",
		"description": "Deep pothole",
		"location": [53.765, -2.685],
		"timestamp": "2024-05-01T10:00:00.000Z",
		"status": "Reported"
	}]`, string(data))
}

func TestStore_PreservesMalformedLocation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "civic_issues.json")
	doc := `[{"id":1,"type":"Other","description":"no pin","location":"somewhere","timestamp":"2024-05-01T10:00:00.000Z","status":"Reported"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o600))

	_, err := s.Append(ctx, sampleReport(2))
	require.NoError(t, err)

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].Location.Valid())

	raw, err := got[0].Location.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"somewhere"`, string(raw))
}

func TestStore_Compressed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "civic_issues.json.zst")

	_, err := s.Append(ctx, sampleReport(1))
	require.NoError(t, err)
	_, err = s.Append(ctx, sampleReport(2))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Deep pothole")

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	s := newStore(t, "civic_issues.json")
	_, err := s.Append(context.Background(), sampleReport(1))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "civic_issues.json", entries[0].Name())
}

func TestStore_Ping(t *testing.T) {
	s := newStore(t, "civic_issues.json")
	require.NoError(t, s.Ping(context.Background()))

	missing, err := NewStore(filepath.Join(t.TempDir(), "nope", "civic_issues.json"), discardLogger())
	require.NoError(t, err)
	assert.Error(t, missing.Ping(context.Background()))
}
