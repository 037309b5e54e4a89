package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionObject(t *testing.T) {
	raw := "```json\n{\"summary\":\" Renewal call \",\"context\":\"customer_call\",\"insights\":[{\"type\":\"pain\",\"title\":\"Slow exports\",\"description\":\"Exports take minutes\",\"confidence\":0.9,\"evidence\":[\"it takes forever\"]}]}\n```"
	out, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, "Renewal call", out.Summary)
	assert.Equal(t, "customer_call", out.Context)
	require.Len(t, out.Insights, 1)
	assert.Equal(t, "pain", out.Insights[0].Type)
	assert.Equal(t, []string{"it takes forever"}, out.Insights[0].Evidence)
}

func TestParseExtractionBareArray(t *testing.T) {
	out, err := ParseExtraction(`Here you go: [{"type":"idea","title":"Dark mode","confidence":0.4}]`)
	require.NoError(t, err)
	require.Len(t, out.Insights, 1)
	assert.Equal(t, "Dark mode", out.Insights[0].Title)
	assert.Empty(t, out.Summary)
}

func TestParseExtractionMalformed(t *testing.T) {
	_, err := ParseExtraction("I could not find anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedOutput))
	assert.False(t, IsTransient(err))

	_, err = ParseExtraction("  ")
	assert.True(t, errors.Is(err, ErrMalformedOutput))
}

func TestBuildPromptTruncatesLongTranscripts(t *testing.T) {
	long := strings.Repeat("a", maxPromptRunes+50)
	prompt := BuildPrompt(long)
	assert.NotContains(t, prompt, strings.Repeat("a", maxPromptRunes+1))
	assert.Contains(t, BuildPrompt("hello there"), "hello there")
}
