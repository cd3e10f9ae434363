package jsonevent

import (
	"testing"

	"github.com/hypersoph/json2tab/pathtrack"
)

func TestIsScalar(t *testing.T) {
	cases := []struct {
		kind pathtrack.RawKind
		want bool
	}{
		{pathtrack.String, true},
		{pathtrack.Number, true},
		{pathtrack.Boolean, true},
		{pathtrack.Null, true},
		{pathtrack.StartMap, false},
		{pathtrack.MapKey, false},
	}
	for _, c := range cases {
		if got := (Event{Kind: c.kind}).IsScalar(); got != c.want {
			t.Fatalf("IsScalar(%v) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestIsObjectBoundary(t *testing.T) {
	if !(Event{Kind: pathtrack.EndMap, Prefix: ""}).IsObjectBoundary() {
		t.Fatalf("root end_map should be an object boundary")
	}
	if (Event{Kind: pathtrack.EndMap, Prefix: "a"}).IsObjectBoundary() {
		t.Fatalf("nested end_map should not be an object boundary")
	}
	if (Event{Kind: pathtrack.EndArray, Prefix: ""}).IsObjectBoundary() {
		t.Fatalf("end_array should never be an object boundary")
	}
}
