package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/entityq/internal/compiler"
)

// LoadMode controls how errors are handled during query loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the query documents found under a path.
type LoadResult struct {
	Queries   []compiler.QueryDoc
	FileCount int // Number of CUE and YAML files read
}

// Find returns the query named name.
func (r *LoadResult) Find(name string) (compiler.QueryDoc, bool) {
	for _, q := range r.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return compiler.QueryDoc{}, false
}

// LoadError represents an error that occurred during query loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries loads query documents from path.
//
// A directory contributes the "queries" struct of its CUE package and every
// YAML file directly inside it. A single .cue, .yaml or .yml file is read
// on its own. YAML documents without a name are named after their file.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadQueries(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query path: %v", err)}}
	}

	var cueFiles, yamlFiles []string
	dir := path
	if info.IsDir() {
		if cueFiles, err = FindCUEFiles(path); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if yamlFiles, err = FindYAMLFiles(path); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	} else {
		dir = filepath.Dir(path)
		switch filepath.Ext(path) {
		case ".cue":
			cueFiles = []string{path}
		case ".yaml", ".yml":
			yamlFiles = []string{path}
		default:
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("unsupported query file: %s", path)}}
		}
	}
	if len(cueFiles) == 0 && len(yamlFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE or YAML files found in %s", path)}}
	}

	result := &LoadResult{FileCount: len(cueFiles) + len(yamlFiles)}
	var errs []error
	failFast := func() bool { return mode == LoadModeFailFast && len(errs) > 0 }

	if len(cueFiles) > 0 {
		args := []string{"."}
		if !info.IsDir() {
			args = []string{filepath.Base(path)}
		}
		docs, cueErrs := loadCUE(dir, args, mode)
		result.Queries = append(result.Queries, docs...)
		errs = append(errs, cueErrs...)
		if failFast() {
			return result, errs
		}
	}

	for _, file := range yamlFiles {
		docs, err := loadYAML(file)
		if err != nil {
			errs = append(errs, err)
			if failFast() {
				return result, errs
			}
			continue
		}
		result.Queries = append(result.Queries, docs...)
	}

	seen := map[string]bool{}
	for _, q := range result.Queries {
		if seen[q.Name] {
			errs = append(errs, &LoadError{Code: compiler.ErrDuplicateQueryKey, Message: fmt.Sprintf("duplicate query name %q", q.Name)})
			if failFast() {
				return result, errs
			}
		}
		seen[q.Name] = true
	}

	if len(result.Queries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no queries found"})
	}
	return result, errs
}

// loadCUE builds the CUE instance in dir and compiles every field of its
// "queries" struct.
func loadCUE(dir string, args []string, mode LoadMode) ([]compiler.QueryDoc, []error) {
	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	queriesVal := value.LookupPath(cue.ParsePath("queries"))
	if !queriesVal.Exists() {
		return nil, nil
	}
	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating queries: %v", err)}}
	}

	var docs []compiler.QueryDoc
	var errs []error
	for iter.Next() {
		doc, err := compiler.CompileQuery(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "queries."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return docs, errs
			}
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, errs
}

// loadYAML parses the query documents in file.
func loadYAML(file string) ([]compiler.QueryDoc, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)}
	}
	docs, err := compiler.ParseYAML(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", file, err)}
	}
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	for i := range docs {
		if docs[i].Name != "" {
			continue
		}
		docs[i].Name = base
		if len(docs) > 1 {
			docs[i].Name = fmt.Sprintf("%s_%d", base, i)
		}
	}
	return docs, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FindYAMLFiles returns the .yaml and .yml files directly inside dir,
// sorted by name.
func FindYAMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
// Query document codes (E1xx) are defined by the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No query files found
	ErrCodeLoadFailed  = "E004" // CUE or YAML load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Database error
	ErrCodeExec        = "E009" // Query execution error
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case strings.HasSuffix(field, ".column"):
		return compiler.ErrEmptyColumn
	case strings.HasSuffix(field, ".value"), strings.HasSuffix(field, ".in"):
		return compiler.ErrUnsupportedValue
	case field == "either", field == "either.branches":
		return compiler.ErrEmptyEither
	case field == "limit":
		return compiler.ErrNonPositiveLimit
	case field == "mask":
		return compiler.ErrEmptyMaskPath
	default:
		return ErrCodeGeneric
	}
}
