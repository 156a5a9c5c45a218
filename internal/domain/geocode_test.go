package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithAddress_NilGeocoder(t *testing.T) {
	r := Report{ID: 1, Location: NewLocation(53.765, -2.685)}

	result := EnrichWithAddress(context.Background(), r, nil, discardLogger())

	assert.Empty(t, result.Address)
}

func TestEnrichWithAddress_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			FormattedAddress: "Deepdale, Preston, England, United Kingdom",
			PlaceName:        "Deepdale",
			Confidence:       0.9,
		},
	}
	r := Report{ID: 1, Location: NewLocation(53.765, -2.685)}

	result := EnrichWithAddress(context.Background(), r, geo, discardLogger())

	assert.Equal(t, "Deepdale, Preston, England, United Kingdom", result.Address)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithAddress_NoLocation(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{FormattedAddress: "somewhere"}}
	r := Report{ID: 1}

	result := EnrichWithAddress(context.Background(), r, geo, discardLogger())

	assert.Empty(t, result.Address)
	assert.Equal(t, 0, geo.calls, "unlocated reports must not be geocoded")
}

func TestEnrichWithAddress_Error(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	r := Report{ID: 1, Location: NewLocation(53.765, -2.685)}

	result := EnrichWithAddress(context.Background(), r, geo, discardLogger())

	assert.Empty(t, result.Address)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithAddress_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}
	r := Report{ID: 1, Location: NewLocation(0, 0)}

	result := EnrichWithAddress(context.Background(), r, geo, discardLogger())

	assert.Empty(t, result.Address)
	assert.Equal(t, 1, geo.calls, "0,0 is a real coordinate pair")
}
