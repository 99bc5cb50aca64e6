package handlers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChatPreview(t *testing.T) {
	short := "see you at the gate"
	assert.Equal(t, short, chatPreview(short))

	long := strings.Repeat("é", 100)
	preview := chatPreview(long)

	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, strings.Repeat("é", 77)+"...", preview)
	assert.Equal(t, 80, utf8.RuneCountInString(preview))

	// Exactly at the limit passes through untouched
	exact := strings.Repeat("x", 80)
	assert.Equal(t, exact, chatPreview(exact))
}
