package domain

import (
	"context"
	"log/slog"
)

// EnrichWithAddress fills Address from the report's coordinates. A nil geocoder,
// a report without a usable location, a lookup error, or an empty result all
// leave the report unchanged.
func EnrichWithAddress(ctx context.Context, r Report, geocoder Geocoder, logger *slog.Logger) Report {
	if geocoder == nil {
		return r
	}
	c, ok := r.Location.Coord()
	if !ok {
		return r
	}

	result, err := geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", r.ID,
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		return r
	}
	if result.FormattedAddress != "" {
		r.Address = result.FormattedAddress
	}
	return r
}
