package mystore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// matches evaluates datastore-style filters against the exported fields of value.
// Besides the comparison operators "in" is supported, with a slice as value.
func matches(value any, filters []Filter) bool {
	v := reflect.Indirect(reflect.ValueOf(value))
	for _, f := range filters {
		if v.Kind() != reflect.Struct {
			return false
		}
		field := v.FieldByName(f.Field)
		if !field.IsValid() {
			return false
		}
		if strings.TrimSpace(f.Compare) == "in" {
			if !isOneOf(field.Interface(), f.Value) {
				return false
			}
			continue
		}
		cmp, ok := compare(field.Interface(), f.Value)
		if !ok {
			return false
		}
		switch strings.TrimSpace(f.Compare) {
		case "=", "==":
			if cmp != 0 {
				return false
			}
		case "!=":
			if cmp == 0 {
				return false
			}
		case "<":
			if cmp >= 0 {
				return false
			}
		case "<=":
			if cmp > 0 {
				return false
			}
		case ">":
			if cmp <= 0 {
				return false
			}
		case ">=":
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isOneOf(a any, candidates any) bool {
	list := reflect.ValueOf(candidates)
	if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < list.Len(); i++ {
		cmp, ok := compare(a, list.Index(i).Interface())
		if ok && cmp == 0 {
			return true
		}
	}
	return false
}

func compare(a any, b any) (int, bool) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	switch {
	case ra.CanInt() && rb.CanInt():
		return cmpOrdered(ra.Int(), rb.Int()), true
	case ra.CanUint() && rb.CanUint():
		return cmpOrdered(ra.Uint(), rb.Uint()), true
	case ra.CanFloat() && rb.CanFloat():
		return cmpOrdered(ra.Float(), rb.Float()), true
	case ra.Kind() == reflect.String:
		return strings.Compare(ra.String(), fmt.Sprint(b)), true
	}
	return 0, false
}

func cmpOrdered[V int64 | uint64 | float64](a V, b V) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// sortByField sorts ascending on field, or descending when prefixed with '-'
func sortByField[T any](values []T, orderByField string) {
	if orderByField == "" {
		return
	}
	descending := strings.HasPrefix(orderByField, "-")
	fieldName := strings.TrimPrefix(orderByField, "-")

	sort.SliceStable(values, func(i, j int) bool {
		a := reflect.Indirect(reflect.ValueOf(values[i])).FieldByName(fieldName)
		b := reflect.Indirect(reflect.ValueOf(values[j])).FieldByName(fieldName)
		if !a.IsValid() || !b.IsValid() {
			return false
		}
		cmp, _ := compare(a.Interface(), b.Interface())
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}
