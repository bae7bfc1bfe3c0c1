package media

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/adrg/strutil/metrics"
)

//go:embed words.txt
var defaultWords string

// WordList is an in-memory spelling dictionary. It is read-only once built
// and safe for concurrent use.
type WordList struct {
	words   []string
	index   map[string]struct{}
	lev     *metrics.Levenshtein
	maxDist int
}

// NewWordList builds a dictionary from words, keeping their order for
// suggestion tie breaks. maxDist bounds the edit distance of suggestions.
func NewWordList(words []string, maxDist int) *WordList {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	wl := &WordList{
		index:   make(map[string]struct{}, len(words)),
		lev:     lev,
		maxDist: maxDist,
	}
	for _, w := range words {
		key := strings.ToLower(w)
		if _, ok := wl.index[key]; ok {
			continue
		}
		wl.index[key] = struct{}{}
		wl.words = append(wl.words, w)
	}
	return wl
}

// LoadDictionary reads a word list from path, or the built-in English list
// when path is empty. Hunspell .dic files such as en_US.dic give the widest
// coverage.
func LoadDictionary(path string, maxDist int) (*WordList, error) {
	if path == "" {
		return parseWordList(strings.NewReader(defaultWords), maxDist)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	wl, err := parseWordList(f, maxDist)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	return wl, nil
}

// parseWordList reads one word per line. Hunspell .dic files are accepted:
// the leading entry count and /FLAGS suffixes are dropped.
func parseWordList(r io.Reader, maxDist int) (*WordList, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if isCount(line) {
				continue
			}
		}
		if i := strings.IndexByte(line, '/'); i >= 0 {
			line = line[:i]
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewWordList(words, maxDist), nil
}

func isCount(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (wl *WordList) Len() int {
	return len(wl.words)
}

// Contains reports whether word, or a regular inflection of a listed word,
// is in the dictionary. Plurals, past tenses, participles, comparatives and
// a few derivational suffixes are recognised, as hunspell affix rules would.
func (wl *WordList) Contains(word string) bool {
	w := strings.ToLower(word)
	if wl.has(w) {
		return true
	}
	for _, stem := range stems(w) {
		if wl.has(stem) {
			return true
		}
		for _, inner := range stems(stem) {
			if wl.has(inner) {
				return true
			}
		}
	}
	return false
}

func (wl *WordList) has(w string) bool {
	_, ok := wl.index[w]
	return ok
}

type suffixRule struct {
	suffix, replace string
}

var suffixRules = []suffixRule{
	{"'s", ""}, {"s'", "s"},
	{"ies", "y"}, {"es", ""}, {"s", ""},
	{"ied", "y"}, {"ed", ""}, {"ed", "e"},
	{"ying", "ie"}, {"ing", ""}, {"ing", "e"},
	{"iest", "y"}, {"est", ""}, {"est", "e"},
	{"ier", "y"}, {"er", ""}, {"er", "e"},
	{"ily", "y"}, {"ally", ""}, {"ly", "le"}, {"ly", ""},
	{"iness", "y"}, {"ness", ""}, {"ment", ""}, {"ful", ""}, {"less", ""},
}

var prefixes = []string{"un", "re", "dis", "non", "pre", "mis"}

// stems lists candidate base forms of w. Stems shorter than two letters
// are never produced.
func stems(w string) []string {
	var out []string
	for _, r := range suffixRules {
		base, ok := strings.CutSuffix(w, r.suffix)
		if !ok || len(base) < 2 {
			continue
		}
		if r.suffix == "s" && strings.HasSuffix(base, "s") {
			continue
		}
		out = append(out, base+r.replace)
		if r.replace == "" && isDoubledConsonant(base) {
			out = append(out, base[:len(base)-1])
		}
	}
	for _, p := range prefixes {
		if base, ok := strings.CutPrefix(w, p); ok && len(base) >= 3 {
			out = append(out, base)
		}
	}
	return out
}

// isDoubledConsonant matches stems like "runn" in "running".
func isDoubledConsonant(s string) bool {
	n := len(s)
	if n < 3 || s[n-1] != s[n-2] {
		return false
	}
	return !strings.ContainsRune("aeiou", rune(s[n-1]))
}

// Suggest returns up to limit dictionary words within the configured edit
// distance of word, closest first. Words at equal distance keep list order.
func (wl *WordList) Suggest(word string, limit int) []string {
	if limit <= 0 || word == "" {
		return nil
	}

	type candidate struct {
		word string
		dist int
	}
	var found []candidate

	n := len([]rune(word))
	for _, w := range wl.words {
		if abs(len([]rune(w))-n) > wl.maxDist {
			continue
		}
		if d := wl.lev.Distance(word, w); d <= wl.maxDist {
			found = append(found, candidate{word: w, dist: d})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].dist < found[j].dist
	})

	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.word
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
