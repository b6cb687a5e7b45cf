package catalog

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQueryValues_EncodesEveryParameterKind(t *testing.T) {
	q := Query{
		Page:    2,
		Limit:   50,
		Expands: []string{"platform"},
		Filter:  map[string]string{"platform_id": "7", "region": ""},
		Search: map[string]SearchTerm{
			"name":       Term("zelda"),
			"deleted_at": Term("null"),
			"rating":     Between("3", "5"),
			"region":     Term("eu", "us"),
		},
		Order: map[string]Direction{"name": Asc, "rating": Desc},
		Extra: url.Values{"scope": {"mine"}},
	}

	got, err := q.Values()
	if err != nil {
		t.Fatalf("Values returned error: %v", err)
	}
	want := url.Values{
		"page":                {"2"},
		"limit":               {"50"},
		"scope":               {"mine"},
		"expand[platform]":    {"*"},
		"filter[platform_id]": {"7"},
		"order[name]":         {"asc"},
		"order[rating]":       {"desc"},
		"search[name]":        {"like,*zelda*"},
		"search[deleted_at]":  {"null"},
		"search[rating]":      {"between,3,5"},
		"search[region][]":    {"eu", "us"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryValidate(t *testing.T) {
	cases := []struct {
		name string
		q    Query
	}{
		{"zero page", Query{Page: 0, Limit: 10}},
		{"zero limit", Query{Page: 1, Limit: 0}},
		{"empty filter key", Query{Page: 1, Limit: 10, Filter: map[string]string{"": "x"}}},
		{"bracket in search key", Query{Page: 1, Limit: 10, Search: map[string]SearchTerm{"a]": Term("x")}}},
		{"bad direction", Query{Page: 1, Limit: 10, Order: map[string]Direction{"name": "up"}}},
		{"blank expand", Query{Page: 1, Limit: 10, Expands: []string{" "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("Validate() = %v, want ErrInvalidQuery", err)
			}
		})
	}

	if err := (Query{Page: 1, Limit: 20}).Validate(); err != nil {
		t.Fatalf("minimal query rejected: %v", err)
	}
}

func TestBetween_DefaultsMissingBounds(t *testing.T) {
	cases := []struct {
		min, max string
		want     string
	}{
		{"1", "4", "between,1,4"},
		{"", "40", "between,0,40"},
		{"60", "", "between,60,100"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := Between(tc.min, tc.max).Value; got != tc.want {
			t.Fatalf("Between(%q, %q) = %q, want %q", tc.min, tc.max, got, tc.want)
		}
	}
}

func TestTerm(t *testing.T) {
	if !Term().IsZero() || !Term(" ", "").IsZero() {
		t.Fatalf("blank terms should be zero")
	}
	if got := Term("a"); got.Value != "a" || got.Values != nil {
		t.Fatalf("Term(a) = %#v, want scalar", got)
	}
	if got := Term("a", "", "b"); len(got.Values) != 2 {
		t.Fatalf("Term(a,b) = %#v, want 2 values", got)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"ASC": Asc, "desc": Desc, " Desc ": Desc, "": ""} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Fatalf("ParseDirection(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("ParseDirection(sideways) returned nil error")
	}
}
