package mcpserver

// FormatContract describes the roadmap text format that LLM consumers
// should follow when writing roadmaps.
const FormatContract = `# Roadmap Format

A roadmap is plain text with one entry per line. The root of the tree is the
roadmap topic and never appears in the text.

## Structure

` + "```" + `text
| Topic A
|| Subtopic A1
|| Subtopic A2 -> Subtopic A1
| Topic B -> Topic A
|| Subtopic B1
||| Detail B1.1 -> Subtopic A2, Subtopic B1
` + "```" + `

## Rules

1. **Every entry starts with "|".** The number of leading bars is the nesting
   level: "|" for top-level entries, "||" for their children, and so on.
2. **A child directly follows its parent.** An entry attaches to the most recent
   entry one level above it. An entry that skips a level has no parent and is
   dropped from the tree.
3. **References** follow "->" as a comma-separated list. Each reference must name
   an entry that appears earlier in the text or on the same line, or the topic
   itself. Unknown names and empty items are ignored.
4. **Names** are trimmed. Do not put "->" or a leading "|" inside a name.
5. **Blank lines** are ignored. Lines without a leading "|" are ignored.
6. **Library files** end with ` + "`" + `.txt` + "`" + ` and may start with a ` + "`" + `# Topic` + "`" + ` line naming the
   topic; otherwise the file name is used.
`
