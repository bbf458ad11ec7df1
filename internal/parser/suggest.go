package parser

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	maxSuggestions      = 3
	suggestionThreshold = 0.80
	minWordLen          = 3
)

var fillerWords = map[string]struct{}{
	"spent": {}, "paid": {}, "dollar": {}, "dollars": {}, "buck": {}, "bucks": {},
	"for": {}, "the": {}, "and": {}, "on": {}, "at": {}, "some": {},
}

type suggestion struct {
	name  string
	score float64
}

// Suggest ranks candidate merchant names that sound like a word of the
// utterance. A candidate qualifies when its Double Metaphone code overlaps the
// word's and their Jaro-Winkler similarity is at least 0.80.
func Suggest(utterance string, candidates []string) []string {
	words := suggestionWords(utterance)
	if len(words) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(candidates))
	var found []suggestion
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if score, ok := bestScore(words, key); ok {
			found = append(found, suggestion{name: c, score: score})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].name < found[j].name
	})
	if len(found) > maxSuggestions {
		found = found[:maxSuggestions]
	}

	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.name
	}
	return out
}

func bestScore(words []string, candidate string) (float64, bool) {
	tokens := strings.Fields(candidate)
	tokens = append(tokens, strings.Join(tokens, ""))
	var best float64
	var ok bool
	for _, w := range words {
		wc := codes(w)
		for _, t := range tokens {
			if !overlap(wc, codes(t)) {
				continue
			}
			if s := matchr.JaroWinkler(w, t, false); s >= suggestionThreshold && s > best {
				best, ok = s, true
			}
		}
	}
	return best, ok
}

func suggestionWords(utterance string) []string {
	fields := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < minWordLen {
			continue
		}
		if _, skip := fillerWords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func codes(word string) map[string]struct{} {
	p, s := matchr.DoubleMetaphone(word)
	out := make(map[string]struct{}, 2)
	if p != "" {
		out[p] = struct{}{}
	}
	if s != "" {
		out[s] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) bool {
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}
