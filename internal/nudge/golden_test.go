package nudge

import (
	"testing"

	"github.com/hugo-lorenzo-mato/compound/internal/testutil"
)

func TestText_Golden(t *testing.T) {
	g := testutil.NewGolden(t, "testdata")
	g.AssertString("text_failed_signature", Text("go test ./...", true))
	g.AssertString("text_no_signature", Text("", false))
}
