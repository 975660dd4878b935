package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/supportdesk/triage-service/internal/config"
)

// ErrInvalidResponse marks a model reply that could not be used.
var ErrInvalidResponse = errors.New("invalid model response")

const diagnoseSystemPrompt = `You are a senior support engineer. Given a customer ticket that did not match any known issue, ` +
	`write two or three sentences of diagnostic reasoning for the human who will pick it up. ` +
	`Do not promise a fix and do not include credentials, internal identifiers or file paths.`

// OpenAI classifies and diagnoses through the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	prompt string
}

// NewOpenAI builds a client from configuration. OPENAI_BASE_URL may point at
// any compatible endpoint.
func NewOpenAI(cfg config.ClassifierConfig) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set when CLASSIFIER_PROVIDER=openai")
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		prompt: classifySystemPrompt(),
	}, nil
}

func classifySystemPrompt() string {
	categories := make([]string, 0, len(Intents))
	for category := range Intents {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Classify the customer support ticket. Reply with a JSON object ")
	b.WriteString(`{"category": string, "intent": string, "certainty": number between 0 and 1}. `)
	b.WriteString("Allowed categories and their intents:\n")
	for _, category := range categories {
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(Intents[category], ", "))
	}
	return b.String()
}

type classificationReply struct {
	Category  string  `json:"category"`
	Intent    string  `json:"intent"`
	Certainty float64 `json:"certainty"`
}

// Classify asks the model for a JSON classification and rejects pairs
// outside the known taxonomy.
func (o *OpenAI) Classify(ctx context.Context, text string) (Classification, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Classification{}, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("openai classify: %w: no choices", ErrInvalidResponse)
	}

	var reply classificationReply
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &reply); err != nil {
		return Classification{}, fmt.Errorf("openai classify: %w: %v", ErrInvalidResponse, err)
	}
	category := strings.ToLower(strings.TrimSpace(reply.Category))
	intent := strings.ToLower(strings.TrimSpace(reply.Intent))
	if !Known(category, intent) {
		return Classification{}, fmt.Errorf("openai classify: %w: unknown intent %s/%s", ErrInvalidResponse, category, intent)
	}
	return Classification{Category: category, Intent: intent, Certainty: reply.Certainty}, nil
}

// Diagnose asks the model for short free-text reasoning.
func (o *OpenAI) Diagnose(ctx context.Context, in DiagnosisContext) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: diagnoseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Category: %s\nIntent: %s\nTicket: %s", in.Category, in.Intent, in.TicketText)},
		},
		MaxCompletionTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("openai diagnose: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai diagnose: %w: empty reply", ErrInvalidResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
