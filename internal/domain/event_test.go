package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		valid bool
		coord Coord
	}{
		{name: "pair", input: `[53.765, -2.685]`, valid: true, coord: Coord{Lat: 53.765, Lon: -2.685}},
		{name: "integers", input: `[0, 1]`, valid: true, coord: Coord{Lat: 0, Lon: 1}},
		{name: "null", input: `null`},
		{name: "single element", input: `[53.765]`},
		{name: "three elements", input: `[53.765, -2.685, 10]`},
		{name: "strings", input: `["53.765", "-2.685"]`},
		{name: "object", input: `{"lat": 53.765, "lon": -2.685}`},
		{name: "string", input: `"Deepdale"`},
		{name: "nested null", input: `[null, 1]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var l Location
			require.NoError(t, json.Unmarshal([]byte(tc.input), &l))

			c, ok := l.Coord()
			assert.Equal(t, tc.valid, ok)
			assert.Equal(t, tc.valid, l.Valid())
			if tc.valid {
				assert.Equal(t, tc.coord, c)
			}
		})
	}
}

func TestLocation_MalformedRoundTrip(t *testing.T) {
	data := []byte(`{"id":1,"type":"Other","description":"x","location":"Deepdale","timestamp":"","status":"Reported"}`)

	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	assert.False(t, r.Location.Valid())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(out))
}

func TestLocation_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(NewLocation(53.765, -2.685))
	require.NoError(t, err)
	assert.JSONEq(t, `[53.765,-2.685]`, string(out))

	out, err = json.Marshal(Location{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestNewLocation_NonFinite(t *testing.T) {
	for _, l := range []Location{
		NewLocation(math.NaN(), -2.685),
		NewLocation(53.765, math.Inf(-1)),
	} {
		assert.False(t, l.Valid())
		data, err := json.Marshal(l)
		require.NoError(t, err)
		assert.JSONEq(t, `null`, string(data))
	}
	assert.True(t, NewLocation(53.765, -2.685).Valid())
}

func TestLocation_Equal(t *testing.T) {
	var parsed Location
	require.NoError(t, json.Unmarshal([]byte(`[1.5, 2.5]`), &parsed))

	assert.True(t, parsed.Equal(NewLocation(1.5, 2.5)))
	assert.False(t, parsed.Equal(NewLocation(1.5, 2.6)))
	assert.False(t, parsed.Equal(Location{}))
	assert.True(t, Location{}.Equal(Location{}))
}

func TestCoord_UnmarshalJSON(t *testing.T) {
	var c Coord
	require.NoError(t, json.Unmarshal([]byte(`[53.76505, -2.68495]`), &c))
	assert.Equal(t, Coord{Lat: 53.76505, Lon: -2.68495}, c)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &c))
}

func TestIssueTypes_FormOrder(t *testing.T) {
	assert.Equal(t, []IssueType{
		"Pothole", "Broken Streetlight", "Trash/Litter", "Graffiti", "Public Transportation", "Other",
	}, IssueTypes())

	types := IssueTypes()
	types[0] = "mutated"
	assert.Equal(t, IssuePothole, IssueTypes()[0], "IssueTypes must return a copy")
}
