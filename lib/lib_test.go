package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	offset, limit, err := ParsePage("", "")
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultLimit, limit)

	offset, limit, err = ParsePage("5", "20")
	require.NoError(t, err)
	assert.Equal(t, 5, offset)
	assert.Equal(t, 20, limit)

	_, limit, err = ParsePage("0", "5000")
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, limit)

	_, limit, err = ParsePage("", "0")
	require.NoError(t, err)
	assert.Equal(t, 0, limit)

	_, _, err = ParsePage("-1", "")
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, _, err = ParsePage("", "abc")
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		_, ok := ParseID(raw)
		assert.False(t, ok, raw)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	assert.Equal(t, "**bold** text", HTMLToMarkdown("<p><strong>bold</strong> text</p>"))
}
