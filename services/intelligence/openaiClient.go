// File: services/intelligence/openaiClient.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"bookflow/models"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is an LLMProvider for any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ LLMProvider = (*OpenAIClient)(nil)

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		msg, err := toOpenAIMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	creq := openai.ChatCompletionRequest{Model: c.model, Messages: messages}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}

	msg := resp.Choices[0].Message
	out := &Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		call := models.ToolCallRequest{ID: tc.ID, Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
				call.ArgumentsError = err.Error()
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func toOpenAIMessage(m models.ChatMessage) (openai.ChatCompletionMessage, error) {
	switch m.Role {
	case models.RoleUser:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}, nil
	case models.RoleAssistant:
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, c := range m.ToolCalls {
			args, err := json.Marshal(c.Arguments)
			if err != nil {
				return msg, fmt.Errorf("encode arguments of %s: %w", c.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       c.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: c.Name, Arguments: string(args)},
			})
		}
		return msg, nil
	case models.RoleTool:
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}, nil
	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("unknown history role %q", m.Role)
	}
}
