package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	openAIResponsesURL = "https://api.openai.com/v1/responses"
	geminiAPIBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
)

func resolveAPIKey(envVar, label string) (string, error) {
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return "", fmt.Errorf("missing %s API key: set %s", label, envVar)
	}
	return key, nil
}

func completeOpenAI(ctx context.Context, model, prompt string, deadlineSeconds, maxTokens int) (string, error) {
	apiKey, err := resolveAPIKey("OPENAI_API_KEY", "OpenAI")
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model": model,
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": prompt},
				},
			},
		},
		"max_output_tokens": maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	client := &http.Client{Timeout: time.Duration(deadlineSeconds) * time.Second}

	var text string
	err = withRetry(ctx, time.Duration(deadlineSeconds)*time.Second, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, openAIResponsesURL, bytes.NewReader(body))
		if rerr != nil {
			return permanent(rerr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, rerr := client.Do(req)
		if rerr != nil {
			return rerr
		}
		defer resp.Body.Close()

		respBody, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return rerr
		}
		if resp.StatusCode != http.StatusOK {
			return &statusError{Code: resp.StatusCode, Body: fmt.Sprintf("openai api %d: %s", resp.StatusCode, string(respBody))}
		}

		extracted, perr := extractOpenAIText(respBody)
		if perr != nil {
			return permanent(perr)
		}
		text = extracted
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func extractOpenAIText(body []byte) (string, error) {
	var parsed struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if strings.TrimSpace(parsed.OutputText) != "" {
		return strings.TrimSpace(parsed.OutputText), nil
	}

	var chunks []string
	for _, item := range parsed.Output {
		for _, block := range item.Content {
			if block.Type == "output_text" || block.Type == "text" {
				if t := strings.TrimSpace(block.Text); t != "" {
					chunks = append(chunks, t)
				}
			}
		}
	}
	text := strings.Join(chunks, "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai response is empty")
	}
	return text, nil
}

func completeGemini(ctx context.Context, model, prompt string, deadlineSeconds, maxTokens int) (string, error) {
	apiKey, err := resolveAPIKey("GEMINI_API_KEY", "Gemini")
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBaseURL, model, apiKey)
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	client := &http.Client{Timeout: time.Duration(deadlineSeconds) * time.Second}

	var text string
	err = withRetry(ctx, time.Duration(deadlineSeconds)*time.Second, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if rerr != nil {
			return permanent(rerr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, rerr := client.Do(req)
		if rerr != nil {
			return rerr
		}
		defer resp.Body.Close()

		respBody, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return rerr
		}
		if resp.StatusCode != http.StatusOK {
			return &statusError{Code: resp.StatusCode, Body: fmt.Sprintf("gemini api %d: %s", resp.StatusCode, string(respBody))}
		}

		extracted, perr := extractGeminiText(respBody)
		if perr != nil {
			return permanent(perr)
		}
		text = extracted
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func extractGeminiText(body []byte) (string, error) {
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini response is empty")
	}
	var parts []string
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini response is empty")
	}
	return text, nil
}

func completeClaude(ctx context.Context, model, prompt string, deadlineSeconds, maxTokens int) (string, error) {
	apiKey, err := resolveAPIKey("ANTHROPIC_API_KEY", "Claude")
	if err != nil {
		return "", err
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var text string
	err = withRetry(ctx, time.Duration(deadlineSeconds)*time.Second, func() error {
		callCtx, cancel := context.WithTimeout(ctx, time.Duration(deadlineSeconds)*time.Second)
		defer cancel()

		message, merr := client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if merr != nil {
			var apiErr *anthropic.Error
			if errors.As(merr, &apiErr) {
				if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
					return &statusError{Code: apiErr.StatusCode, Body: apiErr.Error()}
				}
				return permanent(apiErr)
			}
			return merr
		}

		if len(message.Content) == 0 {
			return permanent(fmt.Errorf("claude response has no content blocks"))
		}
		block := message.Content[0]
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			return permanent(fmt.Errorf("claude response is empty"))
		}
		text = strings.TrimSpace(block.Text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
