package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFromTimedTextParsesStartAndDur(t *testing.T) {
	xmlDoc := `<transcript><text start="1.5" dur="2.25">hi &amp; bye</text><text start="4">no dur</text></transcript>`
	s := NewSet("", "")
	require.NoError(t, s.AddFromTimedText(strings.NewReader(xmlDoc), NewStyle()))
	require.Len(t, s.Events, 2)

	assert.Equal(t, 1.5, s.Events[0].Start)
	assert.Equal(t, 2.25, s.Events[0].Dur)
	assert.Equal(t, "hi & bye", s.Events[0].Text)

	assert.Equal(t, 4.0, s.Events[1].Start)
	assert.Equal(t, 0.0, s.Events[1].Dur)
	assert.Equal(t, "no dur", s.Events[1].Text)
}

func TestAddFromTimedTextSharesOneInternedStyle(t *testing.T) {
	xmlDoc := `<transcript><text start="0" dur="1">a</text><text start="1" dur="1">b</text></transcript>`
	s := NewSet("", "")
	require.NoError(t, s.AddFromTimedText(strings.NewReader(xmlDoc), NewStyle()))
	assert.Same(t, s.Events[0].Style, s.Events[1].Style)
}
