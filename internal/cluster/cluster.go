package cluster

import (
	"encoding/json"
	"math"

	"github.com/couchcryptid/civic-report-service/internal/domain"
)

// DefaultThreshold is the merge distance in coordinate degrees.
const DefaultThreshold = 0.0005

// Cluster is a group of nearby reports and their running centroid.
type Cluster struct {
	Center  domain.Coord
	Members []domain.Report

	sumLat float64
	sumLon float64
}

func newCluster(r domain.Report, c domain.Coord) *Cluster {
	return &Cluster{
		Center:  c,
		Members: []domain.Report{r},
		sumLat:  c.Lat,
		sumLon:  c.Lon,
	}
}

// add appends a member and moves the centre to the mean of all members.
func (cl *Cluster) add(r domain.Report, c domain.Coord) {
	cl.Members = append(cl.Members, r)
	cl.sumLat += c.Lat
	cl.sumLon += c.Lon
	n := float64(len(cl.Members))
	cl.Center = domain.Coord{Lat: cl.sumLat / n, Lon: cl.sumLon / n}
}

// Count is the number of member reports.
func (cl Cluster) Count() int { return len(cl.Members) }

func (cl Cluster) MarshalJSON() ([]byte, error) {
	members := cl.Members
	if members == nil {
		members = []domain.Report{}
	}
	return json.Marshal(struct {
		Center  domain.Coord    `json:"center"`
		Members []domain.Report `json:"members"`
	}{cl.Center, members})
}

// Distance is the Euclidean distance between two coordinates in raw degrees.
func Distance(a, b domain.Coord) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Build clusters the reports that carry a usable location, in input order.
// A non-positive threshold falls back to DefaultThreshold.
func Build(reports []domain.Report, threshold float64) []Cluster {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var clusters []*Cluster
	for _, r := range reports {
		c, ok := r.Location.Coord()
		if !ok {
			continue
		}

		placed := false
		for _, cl := range clusters {
			if Distance(cl.Center, c) < threshold {
				cl.add(r, c)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, newCluster(r, c))
		}
	}

	out := make([]Cluster, len(clusters))
	for i, cl := range clusters {
		out[i] = *cl
	}
	return out
}
