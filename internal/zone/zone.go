package zone

import (
	"github.com/lenswatch/nvr-core/internal/detector"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// Filtered is a detection that survived the zone filter, tagged with
// the id of the first zone that matched it.
type Filtered struct {
	Box    detector.Box
	ZoneID string
}

// Filter applies the zone filter (spec.md §4.3 step 4) to a frame's raw
// boxes: a box's center must fall inside some enabled zone whose class
// list (if non-empty) contains the box's label and whose min-confidence
// floor the box meets. If zones is empty, or none are enabled, every
// box passes untagged.
func Filter(boxes []detector.Box, zones []repository.Zone) []Filtered {
	enabled := make([]repository.Zone, 0, len(zones))
	for _, z := range zones {
		if z.Enabled {
			enabled = append(enabled, z)
		}
	}
	if len(enabled) == 0 {
		out := make([]Filtered, len(boxes))
		for i, b := range boxes {
			out[i] = Filtered{Box: b}
		}
		return out
	}

	out := make([]Filtered, 0, len(boxes))
	for _, b := range boxes {
		cx, cy := b.X+b.W/2, b.Y+b.H/2
		for _, z := range enabled {
			if !Contains(z.Points, cx, cy) {
				continue
			}
			if !classAllowed(z.ClassFilter, b.Label) {
				continue
			}
			if b.Confidence < z.MinConfidence {
				continue
			}
			out = append(out, Filtered{Box: b, ZoneID: z.ID})
			break
		}
	}
	return out
}

func classAllowed(classes []string, label string) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c == label {
			return true
		}
	}
	return false
}

// Contains reports whether point (x, y) lies inside the polygon
// described by points, using the standard ray-casting (even-odd rule)
// algorithm. A polygon with fewer than 3 points never contains a point.
func Contains(points [][2]float64, x, y float64) bool {
	if len(points) < 3 {
		return false
	}
	inside := false
	n := len(points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := points[i][0], points[i][1]
		xj, yj := points[j][0], points[j][1]
		if ((yi > y) != (yj > y)) &&
			(x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
	}
	return inside
}
