package jsonevent

import "github.com/hypersoph/json2tab/pathtrack"

// Event is one yield from a Decoder: a scalar or structural marker together
// with the dotted path it occurs at.
type Event struct {
	BasePrefix string
	Prefix     string
	Kind       pathtrack.RawKind
	Value      any // set for MapKey and scalar kinds, nil otherwise
}

// IsScalar reports whether the event carries a leaf value.
func (e Event) IsScalar() bool {
	switch e.Kind {
	case pathtrack.String, pathtrack.Number, pathtrack.Boolean, pathtrack.Null:
		return true
	default:
		return false
	}
}

// IsObjectBoundary reports whether this event closes a top-level JSON object,
// i.e. marks the point at which a flattener should snapshot one row per
// table and reset its partial rows.
func (e Event) IsObjectBoundary() bool {
	return e.Kind == pathtrack.EndMap && e.Prefix == "" && e.Value == nil
}
