// Package rules decides whether a note needs a namespace line and computes
// the content that results from injecting one. Everything here is pure.
package rules

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/namespacer/internal/models"
)

// DefaultFormat is the template used when none is configured.
const DefaultFormat = "{path}"

// Template placeholders.
const (
	PlaceholderPath = "{path}"
	PlaceholderName = "{name}"
)

const markerPrefix = "namespace:: "

var (
	markerRe    = regexp.MustCompile(`(?m)^[ \t]*namespace[ \t]*::[ \t]*\S.*$`)
	repeatSepRe = regexp.MustCompile(`/{2,}`)
)

// HasNamespaceMarker reports whether any line of content carries a
// non-empty namespace:: value.
func HasNamespaceMarker(content string) bool {
	return markerRe.MatchString(content)
}

// IsExcluded reports whether notePath matches any exclude pattern. Every
// pattern is first tried as a case-insensitive substring, so folders such as
// "[Archive]" can be named literally. Patterns with glob meta characters that
// are not substrings are then matched as doublestar globs against the
// lower-cased path. Patterns are used as given, surrounding spaces included.
func IsExcluded(notePath string, patterns []string) bool {
	lower := strings.ToLower(notePath)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		p = strings.ToLower(p)
		if strings.Contains(lower, p) {
			return true
		}
		if isGlob(p) {
			if ok, err := doublestar.Match(p, lower); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// ComputeNamespaceValue renders format for note. Root-level notes always
// yield "".
func ComputeNamespaceValue(note models.Note, format string) string {
	folder := note.Folder()
	if folder == "" {
		return ""
	}
	if strings.TrimSpace(format) == "" {
		format = DefaultFormat
	}
	v := strings.ReplaceAll(format, PlaceholderPath, folder)
	v = strings.ReplaceAll(v, PlaceholderName, note.Name())
	v = repeatSepRe.ReplaceAllString(v, "/")
	return strings.Trim(v, "/")
}

// MarkerLine returns the namespace line for value, without line ending.
func MarkerLine(value string) string {
	return markerPrefix + value
}

// BuildInjectedContent prepends the namespace line and one blank line.
func BuildInjectedContent(original, value string) string {
	return MarkerLine(value) + "\n\n" + original
}

// Plan computes the change for one note. ok is false when the note must be
// left alone: no folder, excluded, or already marked.
func Plan(note models.Note, content, format string, exclude []string) (change models.PlannedChange, ok bool) {
	value := ComputeNamespaceValue(note, format)
	if value == "" || IsExcluded(note.Path, exclude) || HasNamespaceMarker(content) {
		return models.PlannedChange{}, false
	}
	return models.PlannedChange{
		Note:        note,
		Namespace:   value,
		NewContent:  BuildInjectedContent(content, value),
		NeedsUpdate: true,
	}, true
}

// Intact reports whether injected is at least as long as original.
// Injection only prepends, so a shorter result signals corruption.
func Intact(original, injected string) bool {
	return len(injected) >= len(original)
}
