package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"sharedrive/internal/logging"
)

// Dictionary is the spelling source used by SpellCorrector.
type Dictionary interface {
	Contains(word string) bool
	Suggest(word string, limit int) []string
}

// SpellCorrector rewrites plain text files word by word, replacing unknown
// words with the closest dictionary suggestion.
type SpellCorrector struct {
	dict   Dictionary
	limit  int
	dice   *metrics.SorensenDice
	logger logging.Logger
}

func NewSpellCorrector(dict Dictionary, limit int, logger logging.Logger) *SpellCorrector {
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false

	return &SpellCorrector{
		dict:   dict,
		limit:  limit,
		dice:   dice,
		logger: logger,
	}
}

// Correct rewrites the file at path in place. Lines have no length limit.
// A read failure is returned and leaves the file untouched; a failed write
// is logged and the original content stays.
func (c *SpellCorrector) Correct(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open text file: %w", err)
	}
	defer f.Close()

	var out bytes.Buffer
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			out.WriteString(c.CorrectLine(line))
			out.WriteByte('\n')
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
	}

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		c.logger.Error(ctx, "failed to write corrected text", "path", path, "error", err)
	}
	return nil
}

// CorrectLine splits on single spaces, so runs of spaces survive as empty
// words.
func (c *SpellCorrector) CorrectLine(line string) string {
	words := strings.Split(line, " ")
	for i, w := range words {
		words[i] = c.CorrectWord(w)
	}
	return strings.Join(words, " ")
}

// CorrectWord replaces an unknown word with its most similar suggestion.
// Surrounding punctuation is kept and the replacement follows the word's
// capitalisation. Tokens with digits or inner symbols, single letters and
// words without suggestions are returned unchanged.
func (c *SpellCorrector) CorrectWord(word string) string {
	lead, core, trail := splitPunct(word)
	if utf8.RuneCountInString(core) < 2 || !isPlainWord(core) || c.dict.Contains(core) {
		return word
	}

	suggestions := c.dict.Suggest(core, c.limit)
	if len(suggestions) == 0 {
		return word
	}

	best, bestScore := suggestions[0], -1.0
	for _, s := range suggestions {
		if score := strutil.Similarity(core, s, c.dice); score > bestScore {
			best, bestScore = s, score
		}
	}
	return lead + matchCase(core, best) + trail
}

func splitPunct(word string) (lead, core, trail string) {
	start := strings.IndexFunc(word, unicode.IsLetter)
	if start < 0 {
		return word, "", ""
	}
	end := strings.LastIndexFunc(word, unicode.IsLetter)
	end += utf8.RuneLen([]rune(word[end:])[0])
	return word[:start], word[start:end], word[end:]
}

func isPlainWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '\'' {
			return false
		}
	}
	return true
}

func matchCase(original, replacement string) string {
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case unicode.IsUpper([]rune(original)[0]):
		r := []rune(strings.ToLower(replacement))
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	default:
		return replacement
	}
}
