package zone

// ObjectFilterMode selects how a stream's object allow/deny list is
// interpreted (spec.md §4.3 step 5).
type ObjectFilterMode string

const (
	ObjectFilterNone    ObjectFilterMode = "none"
	ObjectFilterInclude ObjectFilterMode = "include"
	ObjectFilterExclude ObjectFilterMode = "exclude"
)

// ApplyObjectFilter keeps or drops already zone-filtered detections by
// label according to mode and list: none keeps everything, include
// keeps only labels present in list (empty list keeps everything),
// exclude drops labels present in list (empty list keeps everything).
func ApplyObjectFilter(in []Filtered, mode ObjectFilterMode, list []string) []Filtered {
	if mode == ObjectFilterNone || len(list) == 0 {
		return in
	}
	set := make(map[string]struct{}, len(list))
	for _, l := range list {
		set[l] = struct{}{}
	}

	out := make([]Filtered, 0, len(in))
	for _, f := range in {
		_, present := set[f.Box.Label]
		switch mode {
		case ObjectFilterInclude:
			if present {
				out = append(out, f)
			}
		case ObjectFilterExclude:
			if !present {
				out = append(out, f)
			}
		}
	}
	return out
}
