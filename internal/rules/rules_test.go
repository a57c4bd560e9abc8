package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/namespacer/internal/models"
)

func TestHasNamespaceMarker(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"first line", "namespace:: Projects\n\nbody", true},
		{"later line", "# Title\nsome text\nnamespace:: a/b\n", true},
		{"leading whitespace", "  \tnamespace:: x", true},
		{"spaces around separator", "namespace :: x", true},
		{"empty value", "namespace::\nbody", false},
		{"whitespace value", "namespace::   \nbody", false},
		{"value on next line", "namespace::\nvalue", false},
		{"inline mention", "see namespace:: x", false},
		{"different key", "namespaces:: x", false},
		{"no marker", "Hello", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasNamespaceMarker(tc.content))
		})
	}
}

func TestIsExcluded(t *testing.T) {
	patterns := []string{"templates/", "", "**/*.draft.md"}

	assert.True(t, IsExcluded("Templates/daily.md", patterns))
	assert.True(t, IsExcluded("work/TEMPLATES/meeting.md", patterns))
	assert.True(t, IsExcluded("work/idea.draft.md", patterns))
	assert.False(t, IsExcluded("work/templates.md", patterns))
	assert.False(t, IsExcluded("Projects/notes.md", patterns))
	assert.False(t, IsExcluded("Projects/notes.md", nil))
}

func TestIsExcluded_LiteralGlobCharacters(t *testing.T) {
	cases := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"Notes/[Archive]/old.md", "[archive]", true},
		{"x/{old}/a.md", "{old}", true},
		{"x/old/a.md", "{old}", false},
		{"Notes/Archive/old.md", "notes/*/old.md", true},
		{"Notes/a draft.md", " draft", true},
		{"Notes/draft.md", " draft", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsExcluded(tc.path, []string{tc.pattern}), "%q with %q", tc.path, tc.pattern)
	}
}

func TestComputeNamespaceValue(t *testing.T) {
	note := models.Note{Path: "Projects/MyProject/notes.md"}

	cases := []struct {
		format string
		want   string
	}{
		{"{path}", "Projects/MyProject"},
		{"notes/{path}", "notes/Projects/MyProject"},
		{"{path}/{name}", "Projects/MyProject/notes"},
		{"/{path}//", "Projects/MyProject"},
		{"a//{path}", "a/Projects/MyProject"},
		{"", "Projects/MyProject"},
		{"   ", "Projects/MyProject"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeNamespaceValue(note, tc.format), "format %q", tc.format)
	}
}

func TestComputeNamespaceValue_RootNote(t *testing.T) {
	note := models.Note{Path: "inbox.md"}
	assert.Empty(t, ComputeNamespaceValue(note, "{path}"))
	assert.Empty(t, ComputeNamespaceValue(note, "fixed/{name}"))
}

func TestBuildInjectedContent(t *testing.T) {
	got := BuildInjectedContent("Hello", "Projects/MyProject")
	assert.Equal(t, "namespace:: Projects/MyProject\n\nHello", got)
	assert.True(t, HasNamespaceMarker(got))
	assert.True(t, Intact("Hello", got))
}

func TestPlan(t *testing.T) {
	exclude := []string{"templates/"}

	change, ok := Plan(models.Note{Path: "Projects/MyProject/notes.md"}, "Hello", "{path}", exclude)
	assert.True(t, ok)
	assert.True(t, change.NeedsUpdate)
	assert.Equal(t, "Projects/MyProject", change.Namespace)
	assert.Equal(t, "namespace:: Projects/MyProject\n\nHello", change.NewContent)

	_, ok = Plan(models.Note{Path: "root.md"}, "Hello", "{path}", exclude)
	assert.False(t, ok, "root notes are never planned")

	_, ok = Plan(models.Note{Path: "templates/daily.md"}, "Hello", "{path}", exclude)
	assert.False(t, ok, "excluded notes are never planned")

	_, ok = Plan(models.Note{Path: "a/b.md"}, "x\nnamespace:: other\n", "{path}", exclude)
	assert.False(t, ok, "marked notes are never planned")

	_, ok = Plan(models.Note{Path: "a/b.md"}, "Hello", "/", exclude)
	assert.False(t, ok, "an empty rendered value is a no-op")
}

func TestIntact(t *testing.T) {
	assert.True(t, Intact("abc", "abc"))
	assert.False(t, Intact("abcd", "abc"))
}
