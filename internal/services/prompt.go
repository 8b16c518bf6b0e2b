package services

import (
	"fmt"
	"strings"
)

// FallbackAnswer is stored when generation fails or returns nothing.
const FallbackAnswer = "The assistant cannot answer right now. Please try again later."

const followUpPromptTemplate = `Answer the follow-up question using the conversation context below.

[Previous Q&A]
Q: %s
A: %s

[New question]
%s
`

// buildPrompt frames question with the parent's latest exchange. Without a
// complete previous exchange the prompt is the bare question.
func buildPrompt(prevQuestion string, prevAnswer *string, question string) string {
	if strings.TrimSpace(prevQuestion) == "" || prevAnswer == nil || strings.TrimSpace(*prevAnswer) == "" {
		return question
	}
	return fmt.Sprintf(followUpPromptTemplate, prevQuestion, *prevAnswer, question)
}
