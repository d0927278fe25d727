package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/msgpulse/internal/compiler"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/sim"
)

// Error codes shared by all commands.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build or catalog compile failed
	ErrCodeWriteFailed = "E007" // file write error
	ErrCodeBadInput    = "E008" // malformed flag or stdin input
	ErrCodeConfig      = "E009" // feature config failed its schema
	ErrCodeJournal     = "E010" // journal open or query failed
)

// CatalogResult is a compiled catalog and the registry built from it.
type CatalogResult struct {
	Catalog   *ir.Catalog
	Registry  *sim.Registry
	FileCount int
	Warnings  []compiler.ValidationError
}

// LoadError is a catalog loading failure with its CUE position, if any.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog compiles the catalog at path (a .cue file or a directory of
// them) and builds its event registry. Catalog errors fail the load;
// warnings are returned in the result.
func LoadCatalog(path string) (*CatalogResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}
	}

	files := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		files = len(cueFiles)
	}

	value, err := compiler.BuildValue(cuecontext.New(), path)
	if err != nil {
		loadErr := convertCompileError(err)
		loadErr.Code = ErrCodeLoadFailed
		return nil, loadErr
	}
	cat, err := compiler.CompileCatalog(value)
	if err != nil {
		return nil, convertCompileError(err)
	}

	result := &CatalogResult{Catalog: cat, FileCount: files}
	for _, problem := range compiler.ValidateCatalog(cat) {
		if !problem.IsWarning() {
			return nil, &LoadError{Code: problem.Code, Message: fmt.Sprintf("%s: %s", problem.Field, problem.Message)}
		}
		result.Warnings = append(result.Warnings, problem)
	}

	result.Registry, err = sim.BuildRegistry(cat)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError keeps the CUE position of a compiler error.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
}

// loadErrorCode returns the code of a LoadError, ErrCodeGeneric otherwise.
func loadErrorCode(err error) (code, message string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Error()
	}
	return ErrCodeGeneric, err.Error()
}
