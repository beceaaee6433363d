package dataset

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
)

// Open reads an entire NetCDF file into memory and closes it. Granule files
// are a few megabytes each, so whole-file reads keep the merge logic simple.
func Open(path string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	out := New()
	out.Attrs = attrsFromMap(nc.Attributes())
	for _, name := range nc.ListVariables() {
		vr, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %q from %s: %w", name, path, err)
		}
		out.SetVar(name, &Variable{
			Dims:   vr.Dimensions,
			Attrs:  attrsFromMap(vr.Attributes),
			Values: vr.Values,
		})
	}
	return out, nil
}

// OpenAttrs reads only a file's global attributes. The granule matcher calls
// this once per (track point, file) pair, so it must not pull variable data.
func OpenAttrs(path string) (*Attrs, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()
	return attrsFromMap(nc.Attributes()), nil
}

// Write serializes the dataset to a classic-format NetCDF file.
func (d *Dataset) Write(path string) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if gattrs, err := d.Attrs.toAttributeMap(); err != nil {
		return fmt.Errorf("global attributes for %s: %w", path, err)
	} else if gattrs != nil {
		if err := cw.AddGlobalAttrs(gattrs); err != nil {
			return fmt.Errorf("write global attributes to %s: %w", path, err)
		}
	}

	for _, name := range d.names {
		v := d.vars[name]
		vattrs, err := v.Attrs.toAttributeMap()
		if err != nil {
			return fmt.Errorf("attributes of %q: %w", name, err)
		}
		if err := cw.AddVar(name, api.Variable{
			Values:     v.Values,
			Dimensions: v.Dims,
			Attributes: vattrs,
		}); err != nil {
			return fmt.Errorf("write variable %q to %s: %w", name, path, err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
