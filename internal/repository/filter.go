package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filter is a conjunction of equality and membership conditions, optionally
// combined with a disjunction of equality sets. The zero Filter matches every row.
type Filter struct {
	Equals map[string]any
	In     map[string][]any
	AnyOf  []map[string]any
}

// Eq builds a filter with a single equality condition.
func Eq(field string, value any) Filter {
	return Filter{Equals: map[string]any{field: value}}
}

// In builds a filter matching rows whose field is one of values.
func In(field string, values ...any) Filter {
	return Filter{In: map[string][]any{field: values}}
}

// Either builds a filter matching rows where field a equals v or field b equals v.
func Either(a, b string, v any) Filter {
	return Filter{AnyOf: []map[string]any{{a: v}, {b: v}}}
}

// IsZero is true when the filter has no conditions.
func (f Filter) IsZero() bool {
	return len(f.Equals) == 0 && len(f.In) == 0 && len(f.AnyOf) == 0
}

// Matches evaluates the filter against a row in memory.
func (f Filter) Matches(row Row) bool {
	for k, v := range f.Equals {
		if !valuesEqual(row[k], v) {
			return false
		}
	}
	for k, vs := range f.In {
		found := false
		for _, v := range vs {
			if valuesEqual(row[k], v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.AnyOf) == 0 {
		return true
	}
	for _, set := range f.AnyOf {
		all := true
		for k, v := range set {
			if !valuesEqual(row[k], v) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	return Compare(a, b) == 0
}

// Compare orders two storage values. Numbers compare numerically, times
// chronologically, strings lexically; nil sorts first. Values of unrelated
// kinds compare by their kind rank so the ordering stays total.
func Compare(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}
	switch ra {
	case rankNil:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankTime:
		ta, tb := toTime(a), toTime(b)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	case rankString:
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}
	return 0
}

const (
	rankNil = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case int, int32, int64, float32, float64:
		return rankNumber
	case time.Time, primitive.DateTime:
		return rankTime
	case string:
		return rankString
	}
	return rankOther
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	}
	return time.Time{}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
