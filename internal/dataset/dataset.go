// Package dataset provides an in-memory model of a NetCDF dataset: named
// variables with dimension names and attributes, plus global attributes.
// It covers the operations the merge tool needs — open a file whole, filter
// variables, concatenate datasets along a dimension, merge disjoint datasets,
// and write the result back out as classic NetCDF.
package dataset

import (
	"fmt"
	"reflect"
)

// Variable is one named array with its dimension names and attributes.
// Values holds the library's native representation: nested slices for
// numeric arrays, strings or string slices for character variables.
type Variable struct {
	Dims   []string
	Attrs  *Attrs
	Values any
}

// Dataset is an ordered collection of variables plus global attributes.
type Dataset struct {
	names []string
	vars  map[string]*Variable

	// Attrs holds the dataset's global attributes.
	Attrs *Attrs
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		vars:  make(map[string]*Variable),
		Attrs: NewAttrs(),
	}
}

// SetVar adds or replaces a variable, preserving insertion order for new names.
func (d *Dataset) SetVar(name string, v *Variable) {
	if _, ok := d.vars[name]; !ok {
		d.names = append(d.names, name)
	}
	d.vars[name] = v
}

// Var returns the named variable, if present.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// Names returns the variable names in insertion order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of variables.
func (d *Dataset) Len() int { return len(d.names) }

// Drop removes the named variables. Missing names are ignored.
func (d *Dataset) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := d.names[:0]
	for _, n := range d.names {
		if drop[n] {
			delete(d.vars, n)
			continue
		}
		kept = append(kept, n)
	}
	d.names = kept
}

// Select returns a new dataset restricted to the named variables, in the
// given order. A missing variable is an error.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	out := New()
	out.Attrs = d.Attrs.Clone()
	for _, n := range names {
		v, ok := d.vars[n]
		if !ok {
			return nil, fmt.Errorf("variable %q not found in dataset", n)
		}
		out.SetVar(n, v)
	}
	return out, nil
}

// collectDimLens derives dimension lengths from a variable's value shape and
// checks them against lens. Character variables stop contributing once their
// values collapse to strings.
func collectDimLens(v *Variable, lens map[string]int) error {
	val := reflect.ValueOf(v.Values)
	for _, dim := range v.Dims {
		if val.Kind() != reflect.Slice {
			// Trailing character-length dims land here once the library has
			// collapsed them into Go strings.
			return nil
		}
		n := val.Len()
		if prev, ok := lens[dim]; ok && prev != n {
			return fmt.Errorf("dimension %q length mismatch: %d vs %d", dim, prev, n)
		}
		lens[dim] = n
		if n == 0 {
			return nil
		}
		val = val.Index(0)
	}
	return nil
}

// Concat concatenates datasets along the named dimension. Variables whose
// leading dimension is dim are appended in order; every dataset must carry
// them. Other variables keep the first dataset's copy (per-channel constants
// like Freq are identical across granules).
func Concat(dim string, datasets ...*Dataset) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("concat along %q: no datasets", dim)
	}
	first := datasets[0]
	out := New()
	out.Attrs = first.Attrs.Clone()

	for _, name := range first.names {
		v := first.vars[name]
		if len(v.Dims) == 0 || v.Dims[0] != dim {
			out.SetVar(name, v)
			continue
		}
		values := v.Values
		for _, ds := range datasets[1:] {
			other, ok := ds.vars[name]
			if !ok {
				return nil, fmt.Errorf("concat along %q: variable %q missing from a dataset", dim, name)
			}
			appended, err := appendValues(values, other.Values)
			if err != nil {
				return nil, fmt.Errorf("concat variable %q: %w", name, err)
			}
			values = appended
		}
		out.SetVar(name, &Variable{Dims: v.Dims, Attrs: v.Attrs, Values: values})
	}
	return out, nil
}

func appendValues(dst, src any) (any, error) {
	dv := reflect.ValueOf(dst)
	sv := reflect.ValueOf(src)
	if dv.Kind() != reflect.Slice || sv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("values are not slices (%T, %T)", dst, src)
	}
	if dv.Type() != sv.Type() {
		return nil, fmt.Errorf("value types differ (%T vs %T)", dst, src)
	}
	return reflect.AppendSlice(dv, sv).Interface(), nil
}

// Merge combines datasets with disjoint variable names into one. Global
// attributes keep the first occurrence of each key. Dimension lengths must
// agree across sources; a mismatch means the inputs do not share indexing
// conventions and cannot be joined.
func Merge(datasets ...*Dataset) (*Dataset, error) {
	out := New()
	lens := make(map[string]int)
	for _, ds := range datasets {
		for _, name := range ds.names {
			if _, ok := out.vars[name]; ok {
				return nil, fmt.Errorf("merge: variable %q defined in more than one dataset", name)
			}
			v := ds.vars[name]
			if err := collectDimLens(v, lens); err != nil {
				return nil, fmt.Errorf("merge: variable %q: %w", name, err)
			}
			out.SetVar(name, v)
		}
		for _, key := range ds.Attrs.Keys() {
			if _, ok := out.Attrs.Get(key); !ok {
				val, _ := ds.Attrs.Get(key)
				out.Attrs.Set(key, val)
			}
		}
	}
	return out, nil
}
