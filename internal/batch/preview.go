package batch

import (
	"fmt"
	"strings"

	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/rules"
)

// PreviewLimit is how many example lines a preview shows.
const PreviewLimit = 10

// FormatPreview describes planned changes without applying them.
func FormatPreview(changes []models.PlannedChange) string {
	if len(changes) == 0 {
		return "No notes need namespace changes."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s would get a namespace line:\n", len(changes), plural(len(changes), "note", "notes"))
	for i, c := range changes {
		if i == PreviewLimit {
			fmt.Fprintf(&b, "... and %d more\n", len(changes)-PreviewLimit)
			break
		}
		fmt.Fprintf(&b, "%s → %s\n", c.Note.Path, rules.MarkerLine(c.Namespace))
	}
	return b.String()
}
