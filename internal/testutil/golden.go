package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

var update = flag.Bool("update", false, "rewrite golden files with the current output")

// Golden compares output against <dir>/<name>.golden byte for byte. Run
// the test with -update to rewrite the files.
type Golden struct {
	t   testing.TB
	dir string
}

func NewGolden(t testing.TB, dir string) *Golden {
	return &Golden{t: t, dir: dir}
}

// Path returns the golden file for name.
func (g *Golden) Path(name string) string {
	return filepath.Join(g.dir, name+".golden")
}

func (g *Golden) Assert(name string, actual []byte) {
	g.t.Helper()
	path := g.Path(name)

	if *update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("creating %s: %v", g.dir, err)
		}
		if err := os.WriteFile(path, actual, 0o644); err != nil {
			g.t.Fatalf("writing %s: %v", path, err)
		}
		g.t.Logf("updated %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		g.t.Fatalf("reading %s: %v (run with -update to create it)", path, err)
	}
	assert.Equal(g.t, string(want), string(actual), "golden mismatch: %s", path)
}

func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()
	g.Assert(name, []byte(actual))
}
