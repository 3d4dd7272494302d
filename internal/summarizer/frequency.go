// Package summarizer picks the sentences of a chunk that best support a question.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer ranks sentences by query overlap, then by in-text word frequency.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

// Sentences splits text into trimmed sentences. Trailing text without
// terminal punctuation is kept as a final sentence.
func (s *FrequencySummarizer) Sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range s.sentencePattern.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[loc[0]:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Excerpt returns up to maxSentences sentences of text in their original order.
// Sentences sharing words with query rank first; with no usable query words
// the ranking is plain word frequency.
func (s *FrequencySummarizer) Excerpt(text, query string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 1
	}
	sentences := s.Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	ranked := s.rank(sentences, s.queryTokens(query))
	selected := ranked[:maxSentences]
	sort.Ints(selected)
	out := make([]string, 0, maxSentences)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}

// Best splits text into sentences and returns the index of the one that best
// matches query, or -1 when query has no usable words.
func (s *FrequencySummarizer) Best(text, query string) ([]string, int) {
	sentences := s.Sentences(text)
	qt := s.queryTokens(query)
	if len(sentences) == 0 || len(qt) == 0 {
		return sentences, -1
	}
	return sentences, s.rank(sentences, qt)[0]
}

func (s *FrequencySummarizer) queryTokens(query string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range s.tokens(query) {
		out[tok] = struct{}{}
	}
	return out
}

// rank returns sentence indexes ordered by descending score; ties keep text order.
func (s *FrequencySummarizer) rank(sentences []string, queryTokens map[string]struct{}) []int {
	freq := map[string]float64{}
	maxF := 1.0
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	scores := make([]float64, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		seen := make(map[string]struct{}, len(toks))
		for _, tok := range toks {
			scores[i] += freq[tok] / maxF
			if _, ok := queryTokens[tok]; !ok {
				continue
			}
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				// one query hit outweighs any amount of frequency
				scores[i] += float64(len(toks) + 1)
			}
		}
		if l := float64(len(toks)); l > 0 {
			scores[i] /= math.Sqrt(l)
		}
	}

	idx := make([]int, len(sentences))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "how", "why", "where", "when", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
