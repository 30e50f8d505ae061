package vendors

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/config"
	"github.com/agentmail-dev/agentmail/log"
)

var (
	openaiClient     *OpenAIClient
	openaiClientOnce sync.Once
)

// OpenAIClient wraps the OpenAI client
type OpenAIClient struct {
	client      *openai.Client
	model       string
	promptModel string
}

// ToolHandler executes a tool call and returns its result as text
type ToolHandler func(ctx context.Context, name, argsJSON string) (string, error)

// ChatOptions holds options for a multi-turn chat completion
type ChatOptions struct {
	System   string
	Messages []openai.ChatCompletionMessage
	Tools    []openai.Tool

	// ToolHandler executes tool calls when Tools is non-empty
	ToolHandler ToolHandler

	// MaxToolCalls bounds how many tool invocations one chat may make
	MaxToolCalls int
	MaxTokens    int
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	Content   string
	ToolCalls int
	Usage     openai.Usage
}

// GetOpenAIClient returns the singleton OpenAI client
func GetOpenAIClient() *OpenAIClient {
	openaiClientOnce.Do(func() {
		cfg := config.Get()

		if cfg.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY not configured, LLM calls disabled")
			return
		}

		clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" && cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
			clientConfig.BaseURL = cfg.OpenAIBaseURL
		}

		openaiClient = &OpenAIClient{
			client:      openai.NewClientWithConfig(clientConfig),
			model:       cfg.OpenAIModel,
			promptModel: cfg.OpenAIPromptModel,
		}

		log.Info().Str("model", cfg.OpenAIModel).Str("baseURL", cfg.OpenAIBaseURL).Msg("OpenAI initialized")
	})

	return openaiClient
}

// Chat performs a chat completion over full conversation history. When the
// model requests tool calls, they are executed through opts.ToolHandler and
// the loop continues until the model produces text or the tool budget runs
// out. Tool exchange messages are not written back into opts.Messages; the
// caller's history keeps only user and assistant text turns.
func (o *OpenAIClient) Chat(ctx context.Context, opts ChatOptions) (*ChatResponse, error) {
	if o == nil {
		return nil, fmt.Errorf("openai client not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(opts.Messages)+1)
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, opts.Messages...)

	maxToolCalls := opts.MaxToolCalls
	if maxToolCalls <= 0 {
		maxToolCalls = 5
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	toolCalls := 0
	var usage openai.Usage

	for {
		req := openai.ChatCompletionRequest{
			Model:     o.model,
			Messages:  messages,
			MaxTokens: maxTokens,
		}
		if len(opts.Tools) > 0 && toolCalls < maxToolCalls {
			req.Tools = opts.Tools
		}

		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			log.Error().Err(err).Msg("chat completion failed")
			return nil, err
		}

		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.Choices) == 0 {
			log.Error().Msg("openai response has no choices")
			return &ChatResponse{ToolCalls: toolCalls, Usage: usage}, nil
		}

		choice := resp.Choices[0]

		if len(choice.Message.ToolCalls) == 0 {
			return &ChatResponse{
				Content:   choice.Message.Content,
				ToolCalls: toolCalls,
				Usage:     usage,
			}, nil
		}

		if opts.ToolHandler == nil {
			return nil, fmt.Errorf("model requested tool %q but no handler is configured", choice.Message.ToolCalls[0].Function.Name)
		}

		messages = append(messages, choice.Message)

		for _, call := range choice.Message.ToolCalls {
			toolCalls++

			var result string
			if toolCalls > maxToolCalls {
				result = "Tool call budget exhausted. Answer with the information gathered so far."
			} else {
				result, err = opts.ToolHandler(ctx, call.Function.Name, call.Function.Arguments)
				if err != nil {
					log.Warn().Err(err).Str("tool", call.Function.Name).Msg("tool call failed")
					result = "Tool call failed: " + err.Error()
				}
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
}

const promptEngineerSystem = `You are a prompt engineer. Your task is to create a system prompt for an AI assistant based on a short instruction.

The instruction describes what the AI assistant should do when receiving emails. Create a clear, focused system prompt that:
1. Defines the assistant's role based on the instruction
2. Provides clear guidelines for responding to emails
3. Maintains a helpful and professional tone
4. Is specific to the task without being overly restrictive

Output ONLY the system prompt text, nothing else. Do not include any explanations or metadata.`

// GenerateAgentPrompt synthesizes a system prompt for a dynamic agent from
// an instruction phrase, using the cheaper prompt model.
func (o *OpenAIClient) GenerateAgentPrompt(ctx context.Context, instruction string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("openai client not configured")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.promptModel,
		MaxTokens: 1024,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: promptEngineerSystem},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Create a system prompt for an AI email assistant with this instruction: %q", instruction),
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		// Degenerate but serviceable prompt when the model returns nothing
		return fmt.Sprintf("You are a helpful AI assistant. Your task is to: %s. Respond to emails professionally and helpfully.", instruction), nil
	}

	return resp.Choices[0].Message.Content, nil
}
