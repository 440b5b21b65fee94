// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bookflow/models"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "models/gemini-1.5-pro"

// GeminiClient is an LLMProvider backed by Gemini function calling.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

var _ LLMProvider = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &GeminiClient{client: client, modelName: modelName}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	contents, err := toGeminiContents(req.History)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: empty history")
	}
	last := contents[len(contents)-1]
	if last.Role == "model" {
		return nil, fmt.Errorf("gemini: history must end with a user or tool turn")
	}

	// GenerativeModel carries per-request settings, so build one per call.
	model := g.client.GenerativeModel(g.modelName)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			params := toGeminiSchema(t.Parameters)
			if params != nil && len(params.Properties) == 0 {
				params = nil // Gemini rejects objects without properties
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]
	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Completion{}, nil
	}

	var sb strings.Builder
	out := &Completion{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, models.ToolCallRequest{
				ID:        "call_" + uuid.NewString(),
				Name:      p.Name,
				Arguments: p.Args,
			})
		}
	}
	out.Text = sb.String()
	return out, nil
}

// toGeminiContents converts history, merging consecutive turns of the same role
// so parallel function responses travel in one content.
func toGeminiContents(history []models.ChatMessage) ([]*genai.Content, error) {
	var contents []*genai.Content
	push := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			push("user", genai.Text(m.Content))
		case models.RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, c := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: c.Name, Args: c.Arguments})
			}
			push("model", parts...)
		case models.RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				return nil, fmt.Errorf("gemini: tool result for %s is not JSON: %w", m.Name, err)
			}
			push("user", genai.FunctionResponse{Name: m.Name, Response: response})
		default:
			return nil, fmt.Errorf("gemini: unknown history role %q", m.Role)
		}
	}
	return contents, nil
}
