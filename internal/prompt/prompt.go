// Package prompt builds the single-call "stuff" prompt sent to the
// generation service: an instruction, every retrieved chunk in rank order,
// then the question.
package prompt

import (
	"errors"
	"strings"

	"securerag/internal/domain"
)

const (
	Instruction = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer."
	questionPrefix = "Question: "
	answerPrefix   = "Helpful Answer:"
	separator      = "\n\n"
)

// Build renders the prompt for question over the ranked results. The question
// is folded onto one line so the question block is always the last
// "\n\nQuestion: " in the prompt.
func Build(question string, results []domain.SearchResult) string {
	question = strings.Join(strings.Fields(question), " ")
	var sb strings.Builder
	sb.WriteString(Instruction)
	sb.WriteString(separator)
	for _, r := range results {
		sb.WriteString(r.Chunk.Text)
		sb.WriteString(separator)
	}
	sb.WriteString(questionPrefix)
	sb.WriteString(question)
	sb.WriteString("\n")
	sb.WriteString(answerPrefix)
	return sb.String()
}

// Parse splits a prompt produced by Build back into its question and context.
func Parse(p string) (question, context string, err error) {
	if !strings.HasPrefix(p, Instruction) || !strings.HasSuffix(p, answerPrefix) {
		return "", "", errors.New("prompt: unrecognized format")
	}
	body := strings.TrimSuffix(strings.TrimPrefix(p, Instruction), answerPrefix)
	i := strings.LastIndex(body, separator+questionPrefix)
	if i < 0 {
		return "", "", errors.New("prompt: missing question")
	}
	context = strings.TrimSpace(body[:i])
	question = strings.TrimSpace(body[i+len(separator)+len(questionPrefix):])
	return question, context, nil
}
