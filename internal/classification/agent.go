package classification

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/factorhq/factor/pkg/formatting"
)

const classifyPrompt = `You are a document classifier for a business document intake system.
Classify the document below into exactly one of these types:
AP_INVOICE, SALES_INVOICE, PURCHASE_ORDER, STATEMENT, OTHER.

Also extract any of these fields you can find: vendor, invoice_number,
invoice_date, amount, po_number, due_date.

Respond with JSON only:
{
  "label": "<type>",
  "confidence": <0.0-1.0>,
  "extracted_fields": {"<field>": "<value>"},
  "reasoning": "<one sentence>"
}`

// maxContentRunes bounds how much document text is sent to the model.
const maxContentRunes = 12000

// AgentClassifier implements Classifier using a go-agents chat agent.
// Each call creates its own agent from the shared config, matching how the
// rest of the service treats agents as cheap per-request values.
type AgentClassifier struct {
	cfg gaconfig.AgentConfig
}

// NewAgentClassifier creates an agent-backed classifier.
func NewAgentClassifier(cfg gaconfig.AgentConfig) *AgentClassifier {
	return &AgentClassifier{cfg: cfg}
}

func (c *AgentClassifier) Classify(
	ctx context.Context,
	content []byte,
	filename, hint string,
) (*Response, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	prompt := composePrompt(content, filename, hint)

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("chat inference: %w", err)
	}

	parsed, err := formatting.Parse[Response](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}

	return &parsed, nil
}

func composePrompt(content []byte, filename, hint string) string {
	text := truncate(string(content), maxContentRunes)

	prompt := fmt.Sprintf("%s\n\nFilename: %s\n", classifyPrompt, filename)
	if hint != "" {
		prompt += fmt.Sprintf("Category hint: %s\n", hint)
	}
	return prompt + "\nDocument content:\n" + text
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
