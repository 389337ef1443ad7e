package AI

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"Rishui/Models"

	"github.com/sashabaranov/go-openai"
)

const MaxTokens = 1024

// Client produces AI risk assessments for inspection findings.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient builds an analysis client. Returns nil when no usable API key is
// configured, which disables the enrichment stage entirely. baseURL is
// optional and exists so tests can point the client at a fake backend.
func NewClient(apiKey, baseURL string) *Client {
	key := strings.TrimSpace(apiKey)
	if key == "" || key == "your_openai_api_key" {
		return nil
	}

	config := openai.DefaultConfig(key)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  openai.GPT3Dot5Turbo1106,
	}
}

const analysisPrompt = `Act as an Israeli municipal safety inspector.
Analyze the following inspection findings: "%s".
Return a valid JSON object (no markdown formatting) with the following keys:
- "riskLevel": One of ["Low", "Medium", "High"]
- "summary": A brief summary in Hebrew.
- "recommendations": An array of strings (recommendations in Hebrew).`

// AnalyzeFindings runs the risk analysis over free-text findings and parses
// the structured result. Any malformed response is reported as an error so
// the caller can abandon the enrichment stage.
func (c *Client) AnalyzeFindings(ctx context.Context, findings string) (*Models.RiskAssessment, error) {
	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(analysisPrompt, findings),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	// Strip markdown fences in case the model wraps the JSON in a code block.
	text := completion.Choices[0].Message.Content
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var assessment Models.RiskAssessment
	if err := json.Unmarshal([]byte(text), &assessment); err != nil {
		return nil, fmt.Errorf("parse assessment: %w", err)
	}

	switch assessment.RiskLevel {
	case Models.RiskLow, Models.RiskMedium, Models.RiskHigh:
	default:
		return nil, fmt.Errorf("unexpected risk level %q", assessment.RiskLevel)
	}

	return &assessment, nil
}
