package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Direction is a sort direction for an order[] parameter.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc/desc in any case. An empty string yields "" with
// no error, which callers treat as "remove this ordering".
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q", value)
	}
}

// Search operator prefixes understood by the API.
const (
	searchLike    = "like,"
	searchBetween = "between,"
	searchNull    = "null"
)

// SearchTerm is the value of one search[] entry: a scalar or a list.
type SearchTerm struct {
	Value  string
	Values []string
}

// Term builds a search term from values: one value is a scalar, several are
// sent as an array parameter. Blank values are dropped.
func Term(values ...string) SearchTerm {
	var kept []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	switch len(kept) {
	case 0:
		return SearchTerm{}
	case 1:
		return SearchTerm{Value: kept[0]}
	default:
		return SearchTerm{Values: kept}
	}
}

// Between builds a numeric range term. Missing bounds fall back to 0 and 100.
func Between(min, max string) SearchTerm {
	min = strings.TrimSpace(min)
	max = strings.TrimSpace(max)
	if min == "" && max == "" {
		return SearchTerm{}
	}
	if min == "" {
		min = "0"
	}
	if max == "" {
		max = "100"
	}
	return SearchTerm{Value: searchBetween + min + "," + max}
}

// IsZero reports whether the term carries no value.
func (t SearchTerm) IsZero() bool {
	return strings.TrimSpace(t.Value) == "" && len(t.Values) == 0
}

// String renders the term for display.
func (t SearchTerm) String() string {
	if len(t.Values) > 0 {
		return strings.Join(t.Values, ",")
	}
	return t.Value
}

// wire returns the value as transmitted: plain scalars become a substring
// pattern, while null and operator-prefixed values pass through untouched.
func (t SearchTerm) wire() string {
	v := t.Value
	switch {
	case v == searchNull:
		return v
	case strings.HasPrefix(v, searchLike), strings.HasPrefix(v, searchBetween):
		return v
	default:
		return searchLike + "*" + v + "*"
	}
}

// Query is the full description of one page request.
type Query struct {
	Page    int
	Limit   int
	Expands []string
	Filter  map[string]string
	Search  map[string]SearchTerm
	Order   map[string]Direction
	// Extra holds static parameters that are sent verbatim.
	Extra url.Values
}

// ErrInvalidQuery is returned when a Query fails validation.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks the query before it is serialised.
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page %d must be >= 1", ErrInvalidQuery, q.Page)
	}
	if q.Limit < 1 {
		return fmt.Errorf("%w: limit %d must be >= 1", ErrInvalidQuery, q.Limit)
	}
	for _, name := range q.Expands {
		if err := validKey("expand", name); err != nil {
			return err
		}
	}
	for key := range q.Filter {
		if err := validKey("filter", key); err != nil {
			return err
		}
	}
	for key := range q.Search {
		if err := validKey("search", key); err != nil {
			return err
		}
	}
	for key, dir := range q.Order {
		if err := validKey("order", key); err != nil {
			return err
		}
		if dir != Asc && dir != Desc {
			return fmt.Errorf("%w: order[%s] direction %q", ErrInvalidQuery, key, dir)
		}
	}
	return nil
}

func validKey(kind, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty %s key", ErrInvalidQuery, kind)
	}
	if strings.ContainsAny(key, "[]=&") {
		return fmt.Errorf("%w: %s key %q contains reserved characters", ErrInvalidQuery, kind, key)
	}
	return nil
}

// Values serialises the query into URL parameters.
func (q Query) Values() (url.Values, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	values := url.Values{}
	for key, vs := range q.Extra {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("limit", strconv.Itoa(q.Limit))

	for _, name := range q.Expands {
		values.Set("expand["+name+"]", "*")
	}
	for _, key := range sortedKeys(q.Filter) {
		value := q.Filter[key]
		if value == "" {
			continue
		}
		values.Set("filter["+key+"]", value)
	}
	for _, key := range sortedKeys(q.Order) {
		values.Set("order["+key+"]", string(q.Order[key]))
	}
	for _, key := range sortedKeys(q.Search) {
		term := q.Search[key]
		if len(term.Values) > 0 {
			for _, v := range term.Values {
				values.Add("search["+key+"][]", v)
			}
			continue
		}
		if strings.TrimSpace(term.Value) == "" {
			continue
		}
		values.Set("search["+key+"]", term.wire())
	}
	return values, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
