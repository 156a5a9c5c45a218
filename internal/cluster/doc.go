// Package cluster groups nearby reports into heatmap markers.
//
// # Algorithm
//
// Clustering is a single greedy pass over the reports in store order. Each report
// joins the first existing cluster, in creation order, whose current centre lies
// strictly closer than the threshold; otherwise it starts a new cluster centred on
// itself. Joining recomputes the centre as the mean of every member coordinate.
//
// Distance is Euclidean in raw degrees:
//
//	d = sqrt((center.lat - lat)² + (center.lon - lon)²)
//
// No nearest-cluster search is made and no geodesic correction is applied, so a
// degree of longitude counts the same as a degree of latitude. At the default
// threshold of 0.0005° that is roughly 55 m north-south and 33 m east-west around
// Preston (53.8°N).
//
// The result depends on input order: the same points fed in a different order can
// cluster differently. Callers recompute clusters from the full report sequence on
// every render; nothing is cached between runs.
//
// # Rendering
//
// [Markers] turns clusters into what the map widget draws: a marker at the centre,
// an icon 20 + 5·n pixels wide for n members (unbounded), and a popup listing each
// member's type and description separated by a horizontal rule. Popup text is
// HTML-escaped, so a description containing markup shows up as literal text.
package cluster
