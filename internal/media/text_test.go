package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharedrive/internal/logging"
)

type stubDictionary struct {
	words       map[string]bool
	suggestions map[string][]string
}

func (d stubDictionary) Contains(word string) bool { return d.words[word] }

func (d stubDictionary) Suggest(word string, limit int) []string {
	s := d.suggestions[word]
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

func TestSpellCorrector_CorrectWord(t *testing.T) {
	dict := stubDictionary{
		words: map[string]bool{"hello": true},
		suggestions: map[string][]string{
			"wrld":  {"word", "world"},
			"tie":   {"tip", "tin"},
			"qqqqq": nil,
		},
	}
	c := NewSpellCorrector(dict, 5, logging.Discard())

	assert.Equal(t, "hello", c.CorrectWord("hello"))
	assert.Equal(t, "", c.CorrectWord(""))
	assert.Equal(t, "world", c.CorrectWord("wrld"))
	assert.Equal(t, "tip", c.CorrectWord("tie"), "ties keep the earlier candidate")
	assert.Equal(t, "qqqqq", c.CorrectWord("qqqqq"))
}

func TestSpellCorrector_CorrectWordKeepsShape(t *testing.T) {
	wl := NewWordList([]string{"the", "world", "a"}, 2)
	c := NewSpellCorrector(wl, 5, logging.Discard())

	tests := []struct {
		in   string
		want string
	}{
		{in: "wrld,", want: "world,"},
		{in: "(wrld)", want: "(world)"},
		{in: "Wrld.", want: "World."},
		{in: "WRLD!", want: "WORLD!"},
		{in: "The", want: "The"},
		{in: "42", want: "42"},
		{in: "x", want: "x"},
		{in: "wr1d", want: "wr1d"},
		{in: "--", want: "--"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CorrectWord(tt.in))
		})
	}
}

func TestSpellCorrector_DefaultDictionaryKeepsEnglish(t *testing.T) {
	wl, err := LoadDictionary("", 2)
	require.NoError(t, err)
	c := NewSpellCorrector(wl, 5, logging.Discard())

	lines := []string{
		"the quick brown fox jumps over the lazy dog while cats are running",
		"The Quick Brown Fox, jumps over the lazy dog.",
		"She walked quickly to the station and bought two tickets for the train.",
		"We uploaded the reports yesterday, and the managers reviewed them carefully.",
		"My children played happily in the garden while their parents were cooking dinner.",
		"Volunteers planted saplings along the riverbank to prevent erosion and flooding.",
	}
	for _, line := range lines {
		assert.Equal(t, line, c.CorrectLine(line))
	}
}

func TestSpellCorrector_CorrectLineKeepsSpacing(t *testing.T) {
	wl := NewWordList([]string{"the", "quick", "brown", "fox"}, 2)
	c := NewSpellCorrector(wl, 5, logging.Discard())

	assert.Equal(t, "the  quick brown fox", c.CorrectLine("teh  quick brwn fox"))
}

func TestSpellCorrector_CorrectFile(t *testing.T) {
	wl, err := LoadDictionary("", 2)
	require.NoError(t, err)
	c := NewSpellCorrector(wl, 5, logging.Discard())

	path := filepath.Join(t.TempDir(), "note.plain")
	require.NoError(t, os.WriteFile(path, []byte("helo world\nthe documnt"), 0o644))

	require.NoError(t, c.Correct(context.Background(), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nthe document\n", string(got))
}

func TestSpellCorrector_Idempotent(t *testing.T) {
	wl, err := LoadDictionary("", 2)
	require.NoError(t, err)
	c := NewSpellCorrector(wl, 5, logging.Discard())

	path := filepath.Join(t.TempDir(), "note.plain")
	content := "the team will share the file\nplease verify your email\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, c.Correct(context.Background(), path))
	require.NoError(t, c.Correct(context.Background(), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestSpellCorrector_LongLine(t *testing.T) {
	c := NewSpellCorrector(NewWordList([]string{"hello", "world"}, 2), 5, logging.Discard())

	path := filepath.Join(t.TempDir(), "note.plain")
	content := strings.Repeat("world ", 250_000) + "helo\r\nwrld"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, c.Correct(context.Background(), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("world ", 250_000)+"hello\nworld\n", string(got))
}

func TestSpellCorrector_MissingFile(t *testing.T) {
	c := NewSpellCorrector(NewWordList(nil, 2), 5, logging.Discard())
	err := c.Correct(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
