package postprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

const (
	httpDispatchTimeout = 60 * time.Second
	mlxNoModelLoaded    = "no model loaded"
	defaultMLXBaseURL   = "http://127.0.0.1:8765"
)

// Dispatcher is the uniform async Post-Process Dispatcher from spec §4.I:
// process(provider_id, model, prompt) -> string, routed to Apple
// Intelligence, the local MLX sidecar, or a generic HTTPS chat-completion
// provider depending on provider_id.
type Dispatcher struct {
	store  settings.Store
	client *http.Client
	logger *log.Logger

	mlxReloadedOnce bool
}

// NewDispatcher builds a Dispatcher reading provider configuration (base
// URL, model, API key) from store at call time, so settings changes take
// effect on the next correction or post-process run without restart.
func NewDispatcher(store settings.Store, logger *log.Logger) *Dispatcher {
	return &Dispatcher{store: store, client: &http.Client{}, logger: logger}
}

// Dispatch implements internal/transcribe.PostProcessDispatcher and
// internal/correction.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, providerID, model, prompt string) (string, error) {
	switch providerID {
	case settings.ProviderAppleIntelligence:
		return d.dispatchAppleIntelligence(ctx, model, prompt)
	case settings.ProviderLocalMLX:
		return d.dispatchLocalMLX(ctx, model, prompt)
	default:
		return d.dispatchHTTP(ctx, providerID, model, prompt)
	}
}

// dispatchAppleIntelligence would call into the OS's on-device LLM, with
// model encoding a token-limit integer. No Go binding for Apple's
// on-device Foundation Models framework exists anywhere in the retrieved
// pack (it exposes a Swift-only API, not a stable C ABI cgo could bridge
// to), so this always reports unavailable rather than fabricating a
// binding.
func (d *Dispatcher) dispatchAppleIntelligence(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("apple intelligence post-processing is not available in this build")
}

// dispatchLocalMLX forwards to the out-of-process MLX sidecar over HTTP.
// If the sidecar reports "no model loaded", it is asked to reload the
// configured model once and the request is retried (spec §4.I).
func (d *Dispatcher) dispatchLocalMLX(ctx context.Context, model, prompt string) (string, error) {
	baseURL := d.mlxBaseURL()
	text, err := d.postMLX(ctx, baseURL, model, prompt)
	if err == nil {
		return text, nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), mlxNoModelLoaded) {
		return "", err
	}
	if d.logger != nil {
		d.logger.Printf("postprocess: mlx sidecar has no model loaded, reloading %q", model)
	}
	if reloadErr := d.reloadMLXModel(ctx, baseURL, model); reloadErr != nil {
		return "", fmt.Errorf("mlx reload failed after no-model-loaded: %w", reloadErr)
	}
	return d.postMLX(ctx, baseURL, model, prompt)
}

// MLXBaseURL exposes the resolved MLX sidecar base URL for collaborators
// outside this package that need to reach the sidecar by a different
// protocol (internal/mlxwatch's websocket event stream uses the same
// host/port as the HTTP /process and /load endpoints above).
func (d *Dispatcher) MLXBaseURL() string {
	return d.mlxBaseURL()
}

func (d *Dispatcher) mlxBaseURL() string {
	snap := d.store.Snapshot()
	if cfg, ok := snap.PostProcessProviders[settings.ProviderLocalMLX]; ok && cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return defaultMLXBaseURL
}

type mlxProcessRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type mlxProcessResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (d *Dispatcher) postMLX(ctx context.Context, baseURL, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, httpDispatchTimeout)
	defer cancel()

	body, err := json.Marshal(mlxProcessRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal mlx request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build mlx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mlx sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read mlx response: %w", err)
	}
	var parsed mlxProcessResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode mlx response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mlx sidecar status %d", resp.StatusCode)
	}
	return stripInvisible(parsed.Text), nil
}

func (d *Dispatcher) reloadMLXModel(ctx context.Context, baseURL, model string) error {
	ctx, cancel := context.WithTimeout(ctx, httpDispatchTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"model": model})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/load", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mlx reload status %d", resp.StatusCode)
	}
	return nil
}

// chatRequest/chatMessage/chatResponse model the OpenAI-compatible
// chat-completion wire shape shared by every generic provider (spec
// §4.I: "any other id -> generic HTTPS chat-completion with bearer API
// key").
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// dispatchHTTP issues a generic OpenAI-compatible chat-completion call
// against the provider's configured base URL with its bearer API key.
func (d *Dispatcher) dispatchHTTP(ctx context.Context, providerID, model, prompt string) (string, error) {
	snap := d.store.Snapshot()
	cfg, ok := snap.PostProcessProviders[providerID]
	if !ok || cfg.BaseURL == "" {
		return "", fmt.Errorf("no base URL configured for provider %q", providerID)
	}
	if model == "" {
		return "", fmt.Errorf("no model configured for provider %q", providerID)
	}
	apiKey := snap.APIKey(providerID)

	ctx, cancel := context.WithTimeout(ctx, httpDispatchTimeout)
	defer cancel()

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	if d.logger != nil {
		d.logger.Printf("postprocess: POST %s provider=%s model=%s prompt_len=%d", url, providerID, model, len(prompt))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("post-processing failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return stripInvisible(strings.TrimSpace(chatResp.Choices[0].Message.Content)), nil
}

// stripInvisible removes zero-width Unicode characters some LLMs leave in
// their output (spec §4.I / correction.rs send_to_llm).
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '​', '‌', '‍', '﻿':
			return -1
		}
		return r
	}, s)
}
