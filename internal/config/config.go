// Package config loads engine configuration from CUE files.
//
// Configuration lives in .cue files in a single directory, conventionally a
// loom.cue declaring "package loom". CUE gives us schema validation and
// defaulting at the boundary so the engine packages only ever see a
// fully-resolved Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/bmatcuk/doublestar/v4"
)

// LoadMode controls how errors are handled during config loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Config is the fully-resolved engine configuration.
type Config struct {
	// BuildRoot is the directory the virtual filesystem is rooted at.
	BuildRoot string
	// WorkDir is where the snapshot store keeps its blobs and index.
	WorkDir string
	// Ignore holds gitignore-style patterns excluded from scans and watches.
	Ignore []string
	// PoolSize is the engine pool's parallelism; 0 means one worker per CPU.
	PoolSize int
}

// LoadError is an error that occurred during config loading.
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

// Error code constants, unified across load and validation failures.
const (
	ErrCodeGeneric     = "C001" // Generic/unknown error
	ErrCodeNotFound    = "C002" // Path not found
	ErrCodeNoFiles     = "C003" // No CUE files found
	ErrCodeLoadFailed  = "C004" // CUE load failed
	ErrCodeBuildFailed = "C005" // CUE build failed

	ErrCodeMissingBuildRoot = "C101" // build_root is required
	ErrCodeBadField         = "C102" // field has wrong type or value
	ErrCodeBadPattern       = "C103" // ignore pattern does not compile
	ErrCodeBadPoolSize      = "C104" // pool_size is negative
)

// Load reads CUE configuration from a directory and resolves it into a
// Config. Relative build_root and work_dir values are resolved against dir.
// If mode is LoadModeFailFast, returns on the first error; LoadModeCollectAll
// gathers every error before returning.
func Load(dir string, mode LoadMode) (*Config, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
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

	return resolve(value, dir, mode)
}

// resolve extracts and validates the Config fields from the built CUE value.
func resolve(value cue.Value, dir string, mode LoadMode) (*Config, []error) {
	var errs []error
	fail := func(e *LoadError) bool {
		errs = append(errs, e)
		return mode == LoadModeFailFast
	}

	cfg := &Config{}

	rootVal := value.LookupPath(cue.ParsePath("build_root"))
	if !rootVal.Exists() {
		if fail(&LoadError{Code: ErrCodeMissingBuildRoot, Message: "build_root is required", Pos: value.Pos()}) {
			return nil, errs
		}
	} else if s, err := rootVal.String(); err != nil {
		if fail(&LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("build_root: %v", err), Pos: rootVal.Pos()}) {
			return nil, errs
		}
	} else if s == "" {
		if fail(&LoadError{Code: ErrCodeMissingBuildRoot, Message: "build_root must not be empty", Pos: rootVal.Pos()}) {
			return nil, errs
		}
	} else {
		cfg.BuildRoot = resolvePath(dir, s)
	}

	workVal := value.LookupPath(cue.ParsePath("work_dir"))
	if workVal.Exists() {
		s, err := workVal.String()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("work_dir: %v", err), Pos: workVal.Pos()}) {
				return nil, errs
			}
		} else {
			cfg.WorkDir = resolvePath(dir, s)
		}
	}
	if cfg.WorkDir == "" && cfg.BuildRoot != "" {
		cfg.WorkDir = filepath.Join(cfg.BuildRoot, ".loom")
	}

	ignoreVal := value.LookupPath(cue.ParsePath("ignore"))
	if ignoreVal.Exists() {
		iter, iterErr := ignoreVal.List()
		if iterErr != nil {
			if fail(&LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("ignore: %v", iterErr), Pos: ignoreVal.Pos()}) {
				return nil, errs
			}
		} else {
			for iter.Next() {
				pat, err := iter.Value().String()
				if err != nil {
					if fail(&LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("ignore entry: %v", err), Pos: iter.Value().Pos()}) {
						return nil, errs
					}
					continue
				}
				if !doublestar.ValidatePattern(pat) {
					if fail(&LoadError{Code: ErrCodeBadPattern, Message: fmt.Sprintf("invalid ignore pattern %q", pat), Pos: iter.Value().Pos()}) {
						return nil, errs
					}
					continue
				}
				cfg.Ignore = append(cfg.Ignore, pat)
			}
		}
	}

	sizeVal := value.LookupPath(cue.ParsePath("pool_size"))
	if sizeVal.Exists() {
		n, err := sizeVal.Int64()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("pool_size: %v", err), Pos: sizeVal.Pos()}) {
				return nil, errs
			}
		} else if n < 0 {
			if fail(&LoadError{Code: ErrCodeBadPoolSize, Message: fmt.Sprintf("pool_size must be >= 0, got %d", n), Pos: sizeVal.Pos()}) {
				return nil, errs
			}
		} else {
			cfg.PoolSize = int(n)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
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
