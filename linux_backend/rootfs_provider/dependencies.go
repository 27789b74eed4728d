package rootfs_provider

import (
	"bytes"
	"debug/elf"
	"os"
	"path/filepath"
	"sort"

	"code.cloudfoundry.org/bootstrap"
)

// DefaultSearchPaths are the directories searched for shared objects, in
// order. RPATH/RUNPATH handling is deliberately absent; the fixed binary
// set only links against loader-default locations.
var DefaultSearchPaths = []string{
	"/lib",
	"/lib64",
	"/lib/x86_64-linux-gnu",
	"/usr/lib",
	"/usr/lib64",
	"/usr/lib/x86_64-linux-gnu",
}

// objectParser extracts the DT_NEEDED sonames and the PT_INTERP loader
// path from one object file.
type objectParser func(path string) (needed []string, interpreter string, err error)

// ELFResolver walks the transitive shared-library dependency chain of an
// executable. Resolution is separate from copying so it can be exercised
// without filesystem side effects.
type ELFResolver struct {
	searchPaths []string
	parse       objectParser
}

func NewELFResolver() *ELFResolver {
	return NewResolver(DefaultSearchPaths, parseELF)
}

// NewResolver builds a resolver with an explicit search path and object
// parser; tests substitute the parser to walk synthetic dependency chains.
func NewResolver(searchPaths []string, parse func(path string) ([]string, string, error)) *ELFResolver {
	return &ELFResolver{
		searchPaths: searchPaths,
		parse:       parse,
	}
}

func (r *ELFResolver) Resolve(executablePath string) ([]string, error) {
	resolved := map[string]bool{}

	queue := []string{executablePath}

	for len(queue) > 0 {
		objectPath := queue[0]
		queue = queue[1:]

		needed, interpreter, err := r.parse(objectPath)
		if err != nil {
			return nil, err
		}

		if interpreter != "" && !resolved[interpreter] {
			resolved[interpreter] = true
			queue = append(queue, interpreter)
		}

		for _, soname := range needed {
			libraryPath, found := r.locate(soname)
			if !found {
				return nil, bootstrap.NewIncompleteFilesystemError(executablePath, soname)
			}

			if resolved[libraryPath] {
				continue
			}

			resolved[libraryPath] = true
			queue = append(queue, libraryPath)
		}
	}

	paths := make([]string, 0, len(resolved))
	for libraryPath := range resolved {
		paths = append(paths, libraryPath)
	}

	sort.Strings(paths)

	return paths, nil
}

func (r *ELFResolver) locate(soname string) (string, bool) {
	for _, dir := range r.searchPaths {
		candidate := filepath.Join(dir, soname)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

func parseELF(path string) ([]string, string, error) {
	file, err := elf.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	needed, err := file.ImportedLibraries()
	if err != nil {
		// statically linked objects have no dynamic section
		return nil, "", nil
	}

	interpreter := ""
	for _, prog := range file.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}

		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err == nil {
			interpreter = string(bytes.TrimRight(data, "\x00"))
		}

		break
	}

	return needed, interpreter, nil
}
