package datatransform

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Markers understood by DestructureList.
const (
	Skip = "_"
	Rest = "...rest"
)

// Apply transforms one extracted value. A nil Apply leaves the value untouched.
type Apply func(interface{}) interface{}

// DestructureList unpacks items positionally. `_` drops an item and a trailing
// `...rest` collects whatever is left as a []interface{}.
func DestructureList(src interface{}, extract []string, funcs []Apply) ([]interface{}, error) {
	arr, err := cast.ToSliceE(src)
	if err != nil {
		return nil, fmt.Errorf("%v is not a list", src)
	}
	if len(extract) > len(arr) {
		return nil, fmt.Errorf("list has %d items, cannot unpack %d", len(arr), len(extract))
	}
	if funcs != nil && len(funcs) != len(extract) {
		return nil, fmt.Errorf("number of funcs (%d) must match extract (%d)", len(funcs), len(extract))
	}
	for i, name := range extract {
		if name == Rest && i != len(extract)-1 {
			return nil, fmt.Errorf("%s must be the last item", Rest)
		}
	}

	out := make([]interface{}, 0, len(extract))
	remaining := arr
	for i, name := range extract {
		fn := applyAt(funcs, i)
		switch name {
		case Skip:
			remaining = remaining[1:]
		case Rest:
			rest := append([]interface{}{}, remaining...)
			out = append(out, call(fn, rest))
			remaining = nil
		default:
			out = append(out, call(fn, remaining[0]))
			remaining = remaining[1:]
		}
	}
	return out, nil
}

// DestructureMap looks up keys in order. Nested keys use `a->b`; a missing
// segment yields nil and funcs are not applied to nil values.
func DestructureMap(src interface{}, keys []string, funcs []Apply) ([]interface{}, error) {
	obj, err := cast.ToStringMapE(src)
	if err != nil {
		return nil, fmt.Errorf("%v is not a map", src)
	}
	if funcs != nil && len(funcs) != len(keys) {
		return nil, fmt.Errorf("number of funcs (%d) must match keys (%d)", len(funcs), len(keys))
	}

	out := make([]interface{}, 0, len(keys))
	for i, key := range keys {
		var item interface{} = obj
		for _, part := range strings.Split(key, "->") {
			current, ok := item.(map[string]interface{})
			if !ok {
				item = nil
				break
			}
			item = current[part]
			if item == nil {
				break
			}
		}
		if item != nil {
			item = call(applyAt(funcs, i), item)
		}
		out = append(out, item)
	}
	return out, nil
}

func applyAt(funcs []Apply, i int) Apply {
	if funcs == nil {
		return nil
	}
	return funcs[i]
}

func call(fn Apply, v interface{}) interface{} {
	if fn == nil {
		return v
	}
	return fn(v)
}
