package mcpserver

// FormatURI is the resource describing the namespace line.
const FormatURI = "namespacer://format"

// FormatGuide describes the namespace line that namespacer adds to notes.
const FormatGuide = `# Namespace Line Format

namespacer adds one line to the top of every Markdown note that lives in a
folder:

` + "```" + `markdown
namespace:: Projects/Work

Original note content, unchanged.
` + "```" + `

## Rules

1. The line is ` + "`" + `namespace:: <value>` + "`" + ` followed by one blank line, then the original
   content byte for byte.
2. The value comes from the namespace format setting. ` + "`" + `{path}` + "`" + ` is the note's
   folder path, ` + "`" + `{name}` + "`" + ` its file name without extension. Repeated slashes are
   collapsed and leading or trailing slashes are trimmed.
3. Notes at the vault root get no line.
4. A note that already has a ` + "`" + `namespace::` + "`" + ` line anywhere (leading spaces or tabs
   allowed, non-empty value) is never touched again, whatever its value.
5. Notes whose path matches an exclude pattern are skipped. A pattern matches
   when it is a case-insensitive substring of the path (` + "`" + `templates/` + "`" + `,
   ` + "`" + `[archive]` + "`" + `). Otherwise a pattern with glob characters (` + "`" + `*?[{` + "`" + `) may
   match the whole lowercased path (` + "`" + `**/drafts/**` + "`" + `).

## Batch processing

- Call ` + "`" + `preview_namespace_changes` + "`" + ` to see what would change.
- Call ` + "`" + `process_existing_notes` + "`" + ` without ` + "`" + `confirm` + "`" + ` to get the count and warnings,
  then again with ` + "`" + `confirm=true` + "`" + ` to apply.
- Every note is backed up before the first write. If any write fails, all
  backed-up notes are restored. Restoration is best-effort.
`
