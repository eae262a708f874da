// Package zone implements the zone filter applied to raw detections
// before they are persisted or considered for a recording decision
// (spec.md §4.3 step 4): polygon containment by ray casting, a
// per-zone class allow-list, and a per-zone confidence floor.
package zone
