package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestIncludesLearnedNames(t *testing.T) {
	got := Suggest("grabbed a latte from kosaa", []string{"Walmart", "Kosa", "kosa"})
	assert.Equal(t, []string{"Kosa"}, got)
}

func TestSuggestIgnoresFillerAndShortWords(t *testing.T) {
	assert.Empty(t, Suggest("spent 5 dollars on it", []string{"Shell", "Target"}))
	assert.Nil(t, Suggest("", []string{"Shell"}))
}

func TestSuggestCapsResults(t *testing.T) {
	got := Suggest("shell", []string{"Shell", "Shel", "Shelly", "Shells", "Shellz"})
	assert.Len(t, got, maxSuggestions)
	assert.Equal(t, "Shell", got[0])
}
