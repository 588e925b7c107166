package cover

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptDeterministic(t *testing.T) {
	first := BuildPrompt("Learn Go in 5 minutes", "red hoodie", "neon city street", "make it dramatic")
	second := BuildPrompt("Learn Go in 5 minutes", "red hoodie", "neon city street", "make it dramatic")
	assert.Equal(t, first, second)
}

func TestBuildPromptPreservesTitleLineBreaks(t *testing.T) {
	title := "5分钟学会React！\n月薪过万攻略"
	prompt := BuildPrompt(title, "", "", "")

	require.Contains(t, prompt, title)

	lines := strings.Split(prompt, "\n")
	assert.Contains(t, lines, "5分钟学会React！")
	assert.Contains(t, lines, "月薪过万攻略")
	assert.Contains(t, prompt, "line break")
}

func TestBuildPromptFallbacks(t *testing.T) {
	prompt := BuildPrompt("title", "", "", "")
	assert.Contains(t, prompt, "modern, stylish")
	assert.Contains(t, prompt, "abstract high-tech studio")
}

func TestBuildPromptExplicitStyleWins(t *testing.T) {
	prompt := BuildPrompt("title", "black suit", "mountain sunrise", "")
	assert.Contains(t, prompt, "black suit")
	assert.Contains(t, prompt, "mountain sunrise")
	assert.NotContains(t, prompt, fallbackClothing)
	assert.NotContains(t, prompt, fallbackBackground)
}

func TestBuildPromptModificationAppendedLast(t *testing.T) {
	prompt := BuildPrompt("title", "", "", "no text at all")

	idx := strings.Index(prompt, "OVERRIDE")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, prompt[idx:], "no text at all")

	without := BuildPrompt("title", "", "", "")
	assert.NotContains(t, without, "OVERRIDE")
}
