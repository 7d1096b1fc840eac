package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"omibyte.io/crow/builder"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	out, err := run(t, "check", "-j", "2", "../../unit/testdata/shapes.yaml")
	be.Err(t, err, nil)
	be.Equal(t, strings.Split(strings.TrimSpace(out), "\n"), []string{
		"shapes: Vec2 satisfies HasLength",
		"shapes: Body does not satisfy Damageable: missing method takeDamage(Int)",
		"shapes: Circle satisfies Shape",
		"shapes: struct { x: Float, y: Float } satisfies interface {}",
	})
}

func TestVTablesCommand(t *testing.T) {
	out, err := run(t, "vtables", "../../unit/testdata/shapes.yaml")
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "Vec2 as HasLength:\n  [0] length() -> Float -> slot 0\n"))
	be.True(t, strings.Contains(out, "Circle as Shape:\n  [0] area() -> Float -> slot 0\n  [1] name() -> String -> slot 1\n"))
}

func TestCheckCommandNoInputs(t *testing.T) {
	_, err := run(t, "check")
	be.Err(t, err, builder.ErrNoInputs)
}

func TestEnvCommand(t *testing.T) {
	t.Setenv("CROWJOBS", "3")
	out, err := run(t, "env")
	be.Err(t, err, nil)
	be.True(t, strings.Contains(out, "CROWJOBS=\"3\"\n"))
}
