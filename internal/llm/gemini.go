package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text for a plain
// generation request.
var ErrEmptyResponse = errors.New("empty response from model")

// maxRawLen caps the diagnostic text kept for malformed replies.
const maxRawLen = 1024

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Temperature       *float32
}

// Gemini talks to Google's Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	system string
	temp   *float32
	logger *slog.Logger
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger.Info("Gemini client initialized", "model", cfg.Model)

	return &Gemini{
		client: client,
		model:  cfg.Model,
		system: cfg.SystemInstruction,
		temp:   cfg.Temperature,
		logger: logger,
	}, nil
}

// Generate sends the conversation with the declared tools and classifies the
// reply. Transport failures are returned as errors; unusable responses come
// back as a ReplyMalformed value.
func (g *Gemini) Generate(ctx context.Context, history []Turn, tools []ToolDeclaration) (Reply, error) {
	config := &genai.GenerateContentConfig{
		Temperature: g.temp,
		Tools:       toGenaiTools(tools),
	}
	if g.system != "" {
		config.SystemInstruction = genai.NewContentFromText(g.system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGenaiContents(history), config)
	if err != nil {
		return Reply{}, fmt.Errorf("generateContent: %w", err)
	}
	return replyFromResponse(resp), nil
}

// Summarize runs a tool-free, instruction-free generation and returns its text.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: g.temp,
	})
	if err != nil {
		return "", fmt.Errorf("generateContent: %w", err)
	}

	reply := replyFromResponse(resp)
	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func replyFromResponse(resp *genai.GenerateContentResponse) Reply {
	if resp == nil || len(resp.Candidates) == 0 {
		return Malformed(rawResponse(resp))
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Malformed(rawResponse(resp))
	}

	reply := NewReply(fromGenaiContent(candidate.Content))
	if reply.Kind == ReplyMalformed {
		reply.Raw = rawResponse(resp)
	}
	return reply
}

func rawResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "<nil response>"
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("<unencodable response: %v>", err)
	}
	if len(data) > maxRawLen {
		data = data[:maxRawLen]
	}
	return string(data)
}

func toGenaiContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		c := &genai.Content{Role: string(t.Role)}
		for _, p := range t.Parts {
			switch {
			case p.ToolCall != nil:
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   p.ToolCall.ID,
						Name: p.ToolCall.Name,
						Args: p.ToolCall.Args,
					},
					ThoughtSignature: p.Signature,
				})
			case p.ToolResponse != nil:
				c.Parts = append(c.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       p.ToolResponse.ID,
						Name:     p.ToolResponse.Name,
						Response: p.ToolResponse.Response,
					},
				})
			case p.Text != "":
				c.Parts = append(c.Parts, &genai.Part{Text: p.Text, ThoughtSignature: p.Signature})
			}
		}
		if len(c.Parts) > 0 {
			contents = append(contents, c)
		}
	}
	return contents
}

func fromGenaiContent(c *genai.Content) Turn {
	turn := Turn{Role: RoleModel}
	for _, p := range c.Parts {
		if p == nil || p.Thought {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			turn.Parts = append(turn.Parts, Part{
				ToolCall: &ToolCall{
					ID:   p.FunctionCall.ID,
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				},
				Signature: p.ThoughtSignature,
			})
		case p.Text != "":
			turn.Parts = append(turn.Parts, Part{Text: p.Text, Signature: p.ThoughtSignature})
		}
	}
	return turn
}

func toGenaiTools(decls []ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		props := make(map[string]*genai.Schema, len(d.Properties))
		for name, p := range d.Properties {
			props[name] = &genai.Schema{
				Type:        toGenaiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
		}
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   d.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toGenaiType(t SchemaType) genai.Type {
	switch t {
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeInteger:
		return genai.TypeInteger
	default:
		return genai.TypeString
	}
}
