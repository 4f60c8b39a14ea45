package hooks

import (
	"os"
	"path/filepath"
	"sort"
)

// InstallHint is shown when the repository scaffolding is missing.
const InstallHint = "Compound scaffolding not installed. Run: loom compound init"

// RequiredFiles are the scaffold files, relative to the repository root, that
// must all exist before any hook does work.
var RequiredFiles = []string{
	"AGENTS.md",
	"LOOM.md",
	".loom/compound/ROADMAP.md",
	".loom/compound/README.md",
	".opencode/commands/loom-plan.md",
	".opencode/commands/loom-work.md",
	".opencode/commands/loom-review.md",
	".opencode/commands/loom-compound.md",
	".opencode/compound/.gitignore",
	".opencode/compound/prompts/autolearn.md",
	".opencode/memory/.gitignore",
}

// CheckInstalled returns the sorted list of missing scaffold files. The
// repository is installed when the list is empty.
func CheckInstalled(root string) []string {
	var missing []string
	for _, rel := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			missing = append(missing, rel)
		}
	}
	sort.Strings(missing)
	return missing
}
