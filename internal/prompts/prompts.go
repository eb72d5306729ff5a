package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// README Generation Prompts
// ============================================================================

// ReadmeSystemPrompt sets the role for chat-style generation backends.
const ReadmeSystemPrompt = `You are a technical documentation specialist who writes accurate, GitHub-ready README files from source code.`

// ReadmeInstructions are the rules the generated README must follow.
const ReadmeInstructions = `Write a README.md for the repository described below.

Output rules:
- Output only GitHub Flavored Markdown. Do not wrap the whole answer in a code fence.
- Use exactly one "#" heading for the project title and "##" for every main section.
- No placeholders such as "[Your description here]" or "Coming soon".
- Include a section only when the provided files support it.
- Use fenced code blocks with a language tag for commands and examples.
- Tables need a pipe at the start and end of every row and short "---" separators.

Sections, in this order, each only if relevant:
1. Title, badges and a one-sentence summary
2. Features (specific, taken from the code)
3. Tech stack table (category, technologies)
4. Getting started: prerequisites, installation, environment variables
5. Usage and development commands
6. API reference (method, endpoint, body, response) when the project exposes one
7. Testing
8. Deployment, when deployment configuration exists
9. Contributing, when contribution guidelines exist
10. License, when a license file exists

Use real names, versions, scripts and paths from the files. If something cannot be determined, leave it out.`

// BuildReadmePrompt assembles the generation prompt.
// Parameters:
//   - repoName: repository name used as the fallback title.
//   - fileList: complete grouped path listing.
//   - context: packed contents of the selected files.
// Returns:
//   - string: prompt text.
func BuildReadmePrompt(repoName, fileList, context string) string {
	var b strings.Builder
	b.WriteString(ReadmeInstructions)
	b.WriteString("\n\n## Project Data\n\n")
	fmt.Fprintf(&b, "Repository: %s\n\n", repoName)
	b.WriteString("### File Structure\n```\n")
	b.WriteString(strings.TrimSpace(fileList))
	b.WriteString("\n```\n\n### Selected File Contents\n```\n")
	b.WriteString(context)
	b.WriteString("\n```\n\nBegin the README now, starting with the # title.")
	return b.String()
}
