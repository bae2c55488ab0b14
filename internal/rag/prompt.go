package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"document-qa/internal/models"
)

// Composer fills the {question} and {context} slots of a fixed template
type Composer struct {
	template prompts.PromptTemplate
}

// NewComposer validates the template once; a malformed template is a
// configuration error.
func NewComposer(template string) (*Composer, error) {
	for _, v := range []string{models.QuestionVar, models.ContextVar} {
		if !strings.Contains(template, "{"+v+"}") {
			return nil, fmt.Errorf("prompt template is missing {%s}", v)
		}
	}
	c := &Composer{template: prompts.PromptTemplate{
		Template:       template,
		InputVariables: []string{models.QuestionVar, models.ContextVar},
		TemplateFormat: prompts.TemplateFormatFString,
	}}
	if _, err := c.render("probe question", "probe context"); err != nil {
		return nil, fmt.Errorf("malformed prompt template: %w", err)
	}
	return c, nil
}

// Compose joins the chunks in retrieval order and substitutes the query
func (c *Composer) Compose(query string, chunks []models.SearchResult) (string, error) {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	return c.render(query, strings.Join(parts, "\n"))
}

func (c *Composer) render(question, context string) (string, error) {
	return c.template.Format(map[string]any{
		models.QuestionVar: question,
		models.ContextVar:  context,
	})
}
