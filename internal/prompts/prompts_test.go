package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReadmePrompt(t *testing.T) {
	p := BuildReadmePrompt("repobrief", "## Complete File List\n\n- go.mod\n", "FILE: go.mod\n...")

	assert.True(t, strings.HasPrefix(p, ReadmeInstructions))
	assert.Contains(t, p, "Repository: repobrief")
	assert.Contains(t, p, "- go.mod")
	assert.Contains(t, p, "FILE: go.mod")
	assert.Less(t, strings.Index(p, "### File Structure"), strings.Index(p, "### Selected File Contents"))
}
