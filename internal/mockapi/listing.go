package mockapi

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/ludexapp/ludex/internal/catalog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type row = map[string]any

type searchParam struct {
	value  string
	values []string
}

type orderParam struct {
	key  string
	desc bool
}

type listParams struct {
	page   int
	limit  int
	expand map[string]bool
	filter map[string]string
	search map[string]searchParam
	order  []orderParam
}

func parseListParams(q url.Values) (listParams, error) {
	p := listParams{
		page:   1,
		limit:  defaultPageSize,
		expand: map[string]bool{},
		filter: map[string]string{},
		search: map[string]searchParam{},
	}
	for name, vals := range q {
		if len(vals) == 0 {
			continue
		}
		switch name {
		case "page", "limit":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 {
				return listParams{}, fmt.Errorf("invalid %s %q", name, vals[0])
			}
			if name == "page" {
				p.page = n
			} else {
				p.limit = min(n, maxPageSize)
			}
			continue
		}

		kind, key, isArray, ok := splitParam(name)
		if !ok {
			continue
		}
		switch kind {
		case "expand":
			p.expand[key] = true
		case "filter":
			p.filter[key] = vals[0]
		case "search":
			if isArray {
				p.search[key] = searchParam{values: vals}
			} else {
				p.search[key] = searchParam{value: vals[0]}
			}
		case "order":
			switch strings.ToLower(vals[0]) {
			case "asc":
				p.order = append(p.order, orderParam{key: key})
			case "desc":
				p.order = append(p.order, orderParam{key: key, desc: true})
			default:
				return listParams{}, fmt.Errorf("invalid order[%s] %q", key, vals[0])
			}
		}
	}
	slices.SortFunc(p.order, func(a, b orderParam) int { return strings.Compare(a.key, b.key) })
	return p, nil
}

// splitParam splits "kind[key]" and "kind[key][]".
func splitParam(name string) (kind, key string, isArray, ok bool) {
	open := strings.IndexByte(name, '[')
	if open <= 0 {
		return "", "", false, false
	}
	kind, rest := name[:open], name[open+1:]
	if strings.HasSuffix(rest, "][]") {
		isArray = true
		rest = strings.TrimSuffix(rest, "[]")
	}
	if !strings.HasSuffix(rest, "]") {
		return "", "", false, false
	}
	key = strings.TrimSuffix(rest, "]")
	if key == "" || strings.ContainsAny(key, "[]") {
		return "", "", false, false
	}
	return kind, key, isArray, true
}

func serveList[T any](s *Server, w http.ResponseWriter, r *http.Request, records []T, relations []string) {
	if s.gate != nil {
		s.gate(r)
	}
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := toRows(records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows = slices.DeleteFunc(rows, func(rw row) bool { return !params.matches(rw) })
	slices.SortStableFunc(rows, params.compare)

	total := len(rows)
	lastPage := max(1, (total+params.limit-1)/params.limit)
	start := min((params.page-1)*params.limit, total)
	end := min(start+params.limit, total)
	data := rows[start:end]
	for _, rw := range data {
		for _, rel := range relations {
			if !params.expand[rel] {
				delete(rw, rel)
			}
		}
	}

	writeJSON(w, http.StatusOK, catalog.Page[row]{
		Data:        data,
		Total:       total,
		CurrentPage: params.page,
		LastPage:    lastPage,
		PerPage:     params.limit,
	})
}

func toRows[T any](records []T) ([]row, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	rows := []row{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p listParams) matches(rw row) bool {
	for key, want := range p.filter {
		if want == "" {
			continue
		}
		got := fieldString(rw[key])
		if !slices.Contains(strings.Split(want, ","), got) {
			return false
		}
	}
	for key, term := range p.search {
		if !matchSearch(rw[key], term) {
			return false
		}
	}
	return true
}

func matchSearch(field any, term searchParam) bool {
	if len(term.values) > 0 {
		return slices.Contains(term.values, fieldString(field))
	}
	v := term.value
	switch {
	case v == "null":
		return field == nil || fieldString(field) == ""
	case strings.HasPrefix(v, "like,"):
		needle := strings.Trim(strings.TrimPrefix(v, "like,"), "*")
		return strings.Contains(strings.ToLower(fieldString(field)), strings.ToLower(needle))
	case strings.HasPrefix(v, "between,"):
		bounds := strings.Split(strings.TrimPrefix(v, "between,"), ",")
		if len(bounds) != 2 {
			return false
		}
		lo, errLo := strconv.ParseFloat(bounds[0], 64)
		hi, errHi := strconv.ParseFloat(bounds[1], 64)
		n, isNum := field.(float64)
		return errLo == nil && errHi == nil && isNum && n >= lo && n <= hi
	default:
		return fieldString(field) == v
	}
}

func (p listParams) compare(a, b row) int {
	for _, o := range p.order {
		c := compareField(a[o.key], b[o.key])
		if o.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return compareField(a["id"], b["id"])
}

func compareField(a, b any) int {
	an, aNum := a.(float64)
	bn, bNum := b.(float64)
	if aNum && bNum {
		return cmp.Compare(an, bn)
	}
	return strings.Compare(strings.ToLower(fieldString(a)), strings.ToLower(fieldString(b)))
}

func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
