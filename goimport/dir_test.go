package goimport

import (
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"omibyte.io/crow/types"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"geom.go": geometry,
		"geom_test.go": `package geom_test

type Ignored struct{}
`,
	})

	im, err := LoadDir(types.NewTable(types.Options{}), nil, dir)
	be.Err(t, err, nil)
	be.Equal(t, names(im.Table(), im.Concretes()), []string{"Body", "Node", "Pair", "Ruler", "Vec2"})

	_, ok := im.Table().Resolve("Ignored")
	be.True(t, !ok)
}

func TestParseDirErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := ParseDir(token.NewFileSet(), t.TempDir())
		be.Err(t, err, ErrNoPackages)
	})

	t.Run("multiple", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"a.go": "package a\n",
			"b.go": "package b\n",
		})
		_, err := ParseDir(token.NewFileSet(), dir)
		be.Err(t, err, ErrMultiplePackages)
	})

	t.Run("typeError", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"a.go": "package a\n\ntype S struct{ X Missing }\n",
		})
		_, err := ParseDir(token.NewFileSet(), dir)
		be.True(t, err != nil)
	})
}
