package apiclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// BuildQuery encodes loose parameters. Nil values are skipped and slices add one
// value per element in order. Keys are written in sorted order.
func BuildQuery(params map[string]any) url.Values {
	v := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		addValue(v, k, params[k])
	}
	return v
}

func addValue(v url.Values, key string, val any) {
	if val == nil {
		return
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return
		}
		addValue(v, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			addValue(v, key, rv.Index(i).Interface())
		}
	default:
		v.Add(key, fmt.Sprint(val))
	}
}

// ParseQueryArgs turns "key=value" pairs into url.Values. A repeated key repeats the value.
func ParseQueryArgs(args []string) (url.Values, error) {
	v := url.Values{}
	for _, arg := range args {
		k, val, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("query argument %q must be key=value", arg)
		}
		v.Add(k, val)
	}
	return v, nil
}
