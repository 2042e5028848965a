package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultToolName is the executable looked up on PATH.
const DefaultToolName = "q"

// DefaultCandidates are the install locations checked before PATH.
var DefaultCandidates = []string{
	"/usr/local/bin/q",
	"/usr/bin/q",
	"~/bin/q",
	"./q",
}

// ErrToolNotFound is returned when no Q CLI executable can be located.
var ErrToolNotFound = errors.New("q cli not found")

// Resolver locates the Q CLI executable: an explicit override first, then a
// fixed list of install locations, then PATH.
type Resolver struct {
	Override   string
	Candidates []string
	Name       string

	lookPath func(string) (string, error)
}

// NewResolver returns a Resolver using the default candidates and name.
func NewResolver(override string) *Resolver {
	return &Resolver{
		Override:   override,
		Candidates: DefaultCandidates,
		Name:       DefaultToolName,
		lookPath:   exec.LookPath,
	}
}

// Resolve returns the path of the executable, or ErrToolNotFound.
func (r *Resolver) Resolve() (string, error) {
	if r.Override != "" {
		path := expandHome(r.Override)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, candidate := range r.Candidates {
		path := expandHome(candidate)
		if isExecutable(path) {
			return path, nil
		}
	}

	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	name := r.Name
	if name == "" {
		name = DefaultToolName
	}
	if path, err := lookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w (override %q, PATH name %q)", ErrToolNotFound, r.Override, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
