package dataset

import (
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Attrs is an insertion-ordered attribute map. NetCDF attribute order is
// significant on disk, so a plain Go map is not enough.
type Attrs struct {
	keys []string
	vals map[string]any
}

// NewAttrs returns an empty attribute map.
func NewAttrs() *Attrs {
	return &Attrs{vals: make(map[string]any)}
}

// Set adds or replaces an attribute, preserving insertion order for new keys.
func (a *Attrs) Set(key string, val any) {
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = val
}

// Get returns the attribute value, if present.
func (a *Attrs) Get(key string) (any, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// Keys returns the attribute keys in insertion order.
func (a *Attrs) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Clone returns an independent copy.
func (a *Attrs) Clone() *Attrs {
	out := NewAttrs()
	if a == nil {
		return out
	}
	for _, k := range a.keys {
		out.Set(k, a.vals[k])
	}
	return out
}

func attrsFromMap(am api.AttributeMap) *Attrs {
	out := NewAttrs()
	if am == nil {
		return out
	}
	for _, key := range am.Keys() {
		if val, ok := am.Get(key); ok {
			out.Set(key, val)
		}
	}
	return out
}

func (a *Attrs) toAttributeMap() (api.AttributeMap, error) {
	if a == nil || len(a.keys) == 0 {
		return nil, nil
	}
	return util.NewOrderedMap(a.Keys(), a.vals)
}
