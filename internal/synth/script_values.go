package synth

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// toStarlark converts a property value read from the graph.
func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(x)
	case int:
		return starlark.MakeInt(x)
	case int64:
		return starlark.MakeInt64(x)
	case int32:
		return starlark.MakeInt64(int64(x))
	case float64:
		return starlark.Float(x)
	case float32:
		return starlark.Float(x)
	case string:
		return starlark.String(x)
	case []string:
		return stringList(x)
	case []any:
		elems := make([]starlark.Value, len(x))
		for i, e := range x {
			elems[i] = toStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		return stringDict(x)
	case map[string]float64:
		d := starlark.NewDict(len(x))
		for _, k := range sortedKeys(x) {
			_ = d.SetKey(starlark.String(k), starlark.Float(x[k]))
		}
		return d
	case time.Time:
		return starlark.String(x.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return starlark.String(x.String())
	default:
		return starlark.String(fmt.Sprint(x))
	}
}

func stringList(ss []string) *starlark.List {
	elems := make([]starlark.Value, len(ss))
	for i, s := range ss {
		elems[i] = starlark.String(s)
	}
	return starlark.NewList(elems)
}

func stringDict(m map[string]any) *starlark.Dict {
	d := starlark.NewDict(len(m))
	for _, k := range sortedKeys(m) {
		_ = d.SetKey(starlark.String(k), toStarlark(m[k]))
	}
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// maxResultDepth bounds how deeply a result binding may nest.
const maxResultDepth = 64

// CyclicResult and ResultTooDeep are the execution messages for result
// bindings that cannot be turned into rows.
const (
	CyclicResult  = "result contains a reference cycle"
	ResultTooDeep = "result is nested too deeply"
)

// resultConverter turns script values into plain Go data. It tracks the
// containers on the current path so a value that contains itself is
// reported instead of walked forever.
type resultConverter struct {
	path map[starlark.Value]bool
}

func fromStarlark(v starlark.Value) (any, error) {
	c := resultConverter{path: make(map[starlark.Value]bool)}
	return c.convert(v, 0)
}

func (c *resultConverter) enter(v starlark.Value, depth int) error {
	if depth >= maxResultDepth {
		return errors.New(ResultTooDeep)
	}
	if c.path[v] {
		return errors.New(CyclicResult)
	}
	c.path[v] = true
	return nil
}

func (c *resultConverter) convert(v starlark.Value, depth int) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		return new(big.Int).Set(x.BigInt()).String(), nil
	case starlark.Float:
		return finite(float64(x)), nil
	case starlark.String:
		return string(x), nil
	case *starlark.List:
		if err := c.enter(x, depth); err != nil {
			return nil, err
		}
		defer delete(c.path, x)
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			e, err := c.convert(x.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case starlark.Tuple:
		if depth >= maxResultDepth {
			return nil, errors.New(ResultTooDeep)
		}
		out := make([]any, len(x))
		for i, e := range x {
			val, err := c.convert(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case *starlark.Set:
		if depth >= maxResultDepth {
			return nil, errors.New(ResultTooDeep)
		}
		out := make([]any, 0, x.Len())
		iter := x.Iterate()
		defer iter.Done()
		var e starlark.Value
		for iter.Next(&e) {
			val, err := c.convert(e, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case *starlark.Dict:
		if err := c.enter(x, depth); err != nil {
			return nil, err
		}
		defer delete(c.path, x)
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			val, err := c.convert(item[1], depth+1)
			if err != nil {
				return nil, err
			}
			out[keyString(item[0])] = val
		}
		return out, nil
	case *starlarkstruct.Struct:
		if depth >= maxResultDepth {
			return nil, errors.New(ResultTooDeep)
		}
		out := make(map[string]any)
		for _, name := range x.AttrNames() {
			attr, err := x.Attr(name)
			if err != nil {
				continue
			}
			val, err := c.convert(attr, depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
		return out, nil
	default:
		return v.String(), nil
	}
}

// finite maps NaN and the infinities to nil so results always encode as JSON.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func keyString(k starlark.Value) string {
	if s, ok := starlark.AsString(k); ok {
		return s
	}
	return k.String()
}

// resultRows shapes a script's result binding into rows: a list becomes one
// row per element, anything else a single row. Non-mapping rows are wrapped
// under a "value" column.
func resultRows(v starlark.Value, topK int) (rows []map[string]any, columns []string, truncated bool, err error) {
	converted, err := fromStarlark(v)
	if err != nil {
		return nil, nil, false, err
	}

	var elems []any
	switch x := converted.(type) {
	case []any:
		elems = x
	default:
		elems = []any{x}
	}

	if topK > 0 && len(elems) > topK {
		elems = elems[:topK]
		truncated = true
	}

	seen := make(map[string]bool)
	rows = make([]map[string]any, 0, len(elems))
	for _, e := range elems {
		row, ok := e.(map[string]any)
		if !ok {
			row = map[string]any{"value": e}
		}
		for _, k := range sortedKeys(row) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows = append(rows, row)
	}
	return rows, columns, truncated, nil
}
