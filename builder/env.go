package builder

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Env holds the environment handed to the go command when Go packages are
// loaded, plus the crow settings.
type Env map[string]string

func Environment() Env {
	goRoot := os.Getenv("GOROOT")
	if len(goRoot) == 0 {
		// Attempt to get GOROOT from the system Go
		if output, err := exec.Command("go", "env", "GOROOT").Output(); err == nil {
			goRoot = strings.TrimSpace(string(output))
		}
	}

	// Get the user cache directory
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}

	return map[string]string{
		"CROWVERBOSITY": getenv("CROWVERBOSITY", "quiet"),
		"CROWJOBS":      getenv("CROWJOBS", ""),

		"GOROOT":      goRoot,
		"GOPATH":      getenv("GOPATH", ""),
		"GOCACHE":     getenv("GOCACHE", filepath.Join(cacheDir, "go-build")),
		"GOFLAGS":     getenv("GOFLAGS", ""),
		"GO111MODULE": getenv("GO111MODULE", ""),
		"HOME":        getenv("HOME", ""),
		"PATH":        getenv("PATH", ""),
	}
}

func (e Env) Print(w io.Writer) {
	for _, key := range e.keys() {
		fmt.Fprintf(w, "%s=%q\n", key, e[key])
	}
}

func (e Env) Value(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return ""
}

// List returns the non-empty variables as KEY=value pairs.
func (e Env) List() []string {
	var result []string
	for _, key := range e.keys() {
		if value := e[key]; len(value) > 0 {
			result = append(result, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return result
}

func (e Env) keys() []string {
	keys := maps.Keys(e)
	slices.Sort(keys)
	return keys
}

func getenv(key, _default string) (value string) {
	value = os.Getenv(key)
	if len(value) == 0 {
		value = _default
	}
	return value
}
