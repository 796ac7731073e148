// SPDX-License-Identifier: MIT

package problem

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TensorValues holds a (possibly nested) numeric array in MathJSON List form:
// ["List", 1, 2, 3] or ["List", ["List", 1, 2], ["List", 3, 4]].
type TensorValues struct {
	scalar   float64
	isScalar bool
	items    []TensorValues
}

// TensorScalar wraps a single number.
func TensorScalar(v float64) TensorValues { return TensorValues{scalar: v, isScalar: true} }

// TensorList wraps a list of values.
func TensorList(items ...TensorValues) TensorValues { return TensorValues{items: items} }

// TensorFromFloats builds a 1-D value list.
func TensorFromFloats(vs ...float64) TensorValues {
	items := make([]TensorValues, len(vs))
	for i, v := range vs {
		items[i] = TensorScalar(v)
	}
	return TensorList(items...)
}

// MarshalJSON emits the MathJSON List form.
func (t TensorValues) MarshalJSON() ([]byte, error) {
	if t.isScalar {
		return json.Marshal(t.scalar)
	}
	arr := make([]any, 0, len(t.items)+1)
	arr = append(arr, "List")
	for _, it := range t.items {
		arr = append(arr, it)
	}
	return json.Marshal(arr)
}

// UnmarshalJSON accepts either the List form or plain nested arrays.
func (t *TensorValues) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := tensorFromAny(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func tensorFromAny(v any) (TensorValues, error) {
	switch x := v.(type) {
	case float64:
		return TensorScalar(x), nil
	case []any:
		elems := x
		if len(x) > 0 {
			if head, ok := x[0].(string); ok {
				if head != "List" {
					return TensorValues{}, fmt.Errorf("unexpected list head %q", head)
				}
				elems = x[1:]
			}
		}
		items := make([]TensorValues, 0, len(elems))
		for _, e := range elems {
			it, err := tensorFromAny(e)
			if err != nil {
				return TensorValues{}, err
			}
			items = append(items, it)
		}
		return TensorList(items...), nil
	default:
		return TensorValues{}, fmt.Errorf("unsupported tensor element %T", v)
	}
}

// At returns the scalar at the given (0-based) index path.
func (t TensorValues) At(idx ...int) (float64, error) {
	cur := t
	for _, i := range idx {
		if cur.isScalar {
			return 0, fmt.Errorf("index path too deep")
		}
		if i < 0 || i >= len(cur.items) {
			return 0, fmt.Errorf("index %d out of range", i)
		}
		cur = cur.items[i]
	}
	if !cur.isScalar {
		return 0, fmt.Errorf("index path does not reach a scalar")
	}
	return cur.scalar, nil
}

func (t TensorValues) matchesShape(shape []int) bool {
	if len(shape) == 0 {
		return t.isScalar
	}
	if t.isScalar || len(t.items) != shape[0] {
		return false
	}
	for _, it := range t.items {
		if !it.matchesShape(shape[1:]) {
			return false
		}
	}
	return true
}

func (t TensorValues) clone() TensorValues {
	c := TensorValues{scalar: t.scalar, isScalar: t.isScalar}
	if t.items != nil {
		c.items = make([]TensorValues, len(t.items))
		for i, it := range t.items {
			c.items[i] = it.clone()
		}
	}
	return c
}

// TensorVariable is an n-dimensional decision variable. Expressions reference
// its elements with 1-based bracket indexing, e.g. X[2,1].
type TensorVariable struct {
	Name          string        `json:"name"`
	Symbol        string        `json:"symbol"`
	Type          VariableType  `json:"variable_type"`
	Shape         []int         `json:"shape"`
	LowerBounds   *TensorValues `json:"lowerbounds,omitempty"`
	UpperBounds   *TensorValues `json:"upperbounds,omitempty"`
	InitialValues *TensorValues `json:"initialvalues,omitempty"`
}

func (tv *TensorVariable) validate() error {
	if len(tv.Shape) == 0 {
		return fmt.Errorf("%w: tensor variable %q has no shape", ErrSchema, tv.Symbol)
	}
	for _, d := range tv.Shape {
		if d < 1 {
			return fmt.Errorf("%w: tensor variable %q has non-positive dimension", ErrSchema, tv.Symbol)
		}
	}
	for name, vals := range map[string]*TensorValues{
		"lowerbounds":   tv.LowerBounds,
		"upperbounds":   tv.UpperBounds,
		"initialvalues": tv.InitialValues,
	} {
		if vals != nil && !vals.matchesShape(tv.Shape) {
			return fmt.Errorf("%w: tensor variable %q %s do not match shape %v",
				ErrSchema, tv.Symbol, name, tv.Shape)
		}
	}
	return nil
}

func (tv TensorVariable) clone() TensorVariable {
	c := tv
	c.Shape = append([]int(nil), tv.Shape...)
	if tv.LowerBounds != nil {
		lb := tv.LowerBounds.clone()
		c.LowerBounds = &lb
	}
	if tv.UpperBounds != nil {
		ub := tv.UpperBounds.clone()
		c.UpperBounds = &ub
	}
	if tv.InitialValues != nil {
		iv := tv.InitialValues.clone()
		c.InitialValues = &iv
	}
	return c
}

// ElementSymbol returns the symbol of the element at the 1-based index path,
// e.g. ElementSymbol(2, 1) == "X[2,1]".
func (tv *TensorVariable) ElementSymbol(idx ...int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return tv.Symbol + "[" + strings.Join(parts, ",") + "]"
}

// Expand flattens the tensor into scalar Variables in row-major order.
func (tv *TensorVariable) Expand() []Variable {
	total := 1
	for _, d := range tv.Shape {
		total *= d
	}
	out := make([]Variable, 0, total)
	idx := make([]int, len(tv.Shape))

	for n := 0; n < total; n++ {
		// 0-based index path for value lookup, 1-based for the symbol.
		oneBased := make([]int, len(idx))
		for i, v := range idx {
			oneBased[i] = v + 1
		}
		v := Variable{
			Name:   fmt.Sprintf("%s element %v", tv.Name, oneBased),
			Symbol: tv.ElementSymbol(oneBased...),
			Type:   tv.Type,
		}
		if tv.LowerBounds != nil {
			if b, err := tv.LowerBounds.At(idx...); err == nil {
				v.LowerBound = F(b)
			}
		}
		if tv.UpperBounds != nil {
			if b, err := tv.UpperBounds.At(idx...); err == nil {
				v.UpperBound = F(b)
			}
		}
		if tv.InitialValues != nil {
			if b, err := tv.InitialValues.At(idx...); err == nil {
				v.InitialValue = F(b)
			}
		}
		out = append(out, v)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < tv.Shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}
