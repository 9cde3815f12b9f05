package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"securerag/internal/prompt"
)

// NoAnswer is returned when no context sentence shares a term with the question.
const NoAnswer = "I don't know."

// Generator answers a prompt built by package prompt without calling a model:
// it returns the context sentences that best match the question, ranked by
// question-term overlap weighted by term frequency across the context.
type Generator struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	sentencePat  *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		sentencePat:  regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
		stopwords:    defaultStopwords(),
	}
}

// Complete implements domain.Generator.
func (g *Generator) Complete(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	question, context, err := prompt.Parse(p)
	if err != nil {
		return "", err
	}
	return g.Answer(question, context), nil
}

// Answer selects up to maxSentences sentences of context relevant to question,
// in their original order.
func (g *Generator) Answer(question, context string) string {
	qterms := make(map[string]struct{})
	for _, tok := range g.tokens(question) {
		qterms[tok] = struct{}{}
	}
	if len(qterms) == 0 {
		return NoAnswer
	}

	sentences := g.sentences(context)
	if len(sentences) == 0 {
		return NoAnswer
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range g.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	var scored []pair
	seen := map[string]struct{}{}
	for i, sent := range sentences {
		// overlapping chunks repeat sentences
		if _, dup := seen[sent]; dup {
			continue
		}
		seen[sent] = struct{}{}
		toks := g.tokens(sent)
		if len(toks) == 0 {
			continue
		}
		hits := 0
		weight := 0.0
		for _, tok := range toks {
			if _, ok := qterms[tok]; ok {
				hits++
				weight += 1 + freq[tok]/maxF
			}
		}
		if hits == 0 {
			continue
		}
		scored = append(scored, pair{i, weight / math.Sqrt(float64(len(toks)))})
	}
	if len(scored) == 0 {
		return NoAnswer
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	n := g.maxSentences
	if n > len(scored) {
		n = len(scored)
	}
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scored[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}

func (g *Generator) sentences(text string) []string {
	raw := g.sentencePat.FindAllString(text+"\n", -1)
	out := raw[:0]
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (g *Generator) tokens(text string) []string {
	raw := g.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, ok := g.stopwords[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "does", "do", "did", "must", "mentioned",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
