package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/msgpulse/internal/ir"
)

// BuildValue loads a catalog from path into a CUE value. path is either a
// single .cue file or a directory whose .cue files form one package.
func BuildValue(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog: %w", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("catalog: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, errors.New("catalog: no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, fmt.Errorf("catalog: loading %s: %w", path, err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadCatalog builds, compiles and validates the catalog at path. Catalog
// warnings are ignored; the first validation error fails the load.
func LoadCatalog(path string) (*ir.Catalog, error) {
	v, err := BuildValue(cuecontext.New(), path)
	if err != nil {
		return nil, err
	}
	cat, err := CompileCatalog(v)
	if err != nil {
		return nil, err
	}
	for _, ve := range ValidateCatalog(cat) {
		if !ve.IsWarning() {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), ve)
		}
	}
	return cat, nil
}
