package postprocess

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

func testStore(providers map[string]settings.PostProcessProviderConfig) *fixedStore {
	return &fixedStore{snap: &settings.Settings{PostProcessProviders: providers}}
}

type fixedStore struct{ snap *settings.Settings }

func (s *fixedStore) Snapshot() *settings.Settings             { return s.snap }
func (s *fixedStore) Update(fn func(*settings.Settings)) error { fn(s.snap); return nil }

func TestDispatchAppleIntelligenceUnavailable(t *testing.T) {
	d := NewDispatcher(testStore(nil), nil)
	_, err := d.Dispatch(context.Background(), settings.ProviderAppleIntelligence, "4096", "fix this")
	if err == nil {
		t.Fatal("expected an unavailable error")
	}
}

func TestDispatchGenericHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("expected model gpt-4o-mini, got %s", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{Message: struct {
			Content string `json:"content"`
		}{Content: "corrected text"}}}})
	}))
	defer srv.Close()

	snap := &settings.Settings{
		PostProcessProviders: map[string]settings.PostProcessProviderConfig{
			"openai": {Model: "gpt-4o-mini", BaseURL: srv.URL},
		},
	}
	snap.SetAPIKey("openai", "secret")
	d := NewDispatcher(&fixedStore{snap: snap}, log.New(io.Discard, "", 0))
	got, err := d.Dispatch(context.Background(), "openai", "gpt-4o-mini", "fix this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "corrected text" {
		t.Errorf("got %q", got)
	}
}

func TestDispatchGenericHTTPMissingBaseURL(t *testing.T) {
	d := NewDispatcher(testStore(map[string]settings.PostProcessProviderConfig{
		"openai": {Model: "gpt-4o-mini"},
	}), nil)
	_, err := d.Dispatch(context.Background(), "openai", "gpt-4o-mini", "fix this")
	if err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestDispatchGenericHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	d := NewDispatcher(testStore(map[string]settings.PostProcessProviderConfig{
		"openai": {Model: "gpt-4o-mini", BaseURL: srv.URL},
	}), nil)
	_, err := d.Dispatch(context.Background(), "openai", "gpt-4o-mini", "fix this")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestDispatchLocalMLXSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(mlxProcessResponse{Text: "fixed"})
	}))
	defer srv.Close()

	d := NewDispatcher(testStore(map[string]settings.PostProcessProviderConfig{
		settings.ProviderLocalMLX: {Model: "qwen", BaseURL: srv.URL},
	}), nil)
	got, err := d.Dispatch(context.Background(), settings.ProviderLocalMLX, "qwen", "fix this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fixed" {
		t.Errorf("got %q", got)
	}
}

func TestDispatchLocalMLXReloadsAndRetriesOnNoModelLoaded(t *testing.T) {
	calls := 0
	loaded := false
	mux := http.NewServeMux()
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !loaded {
			json.NewEncoder(w).Encode(mlxProcessResponse{Error: "No model loaded"})
			return
		}
		json.NewEncoder(w).Encode(mlxProcessResponse{Text: "fixed after reload"})
	})
	mux.HandleFunc("/load", func(w http.ResponseWriter, r *http.Request) {
		loaded = true
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDispatcher(testStore(map[string]settings.PostProcessProviderConfig{
		settings.ProviderLocalMLX: {Model: "qwen", BaseURL: srv.URL},
	}), nil)
	got, err := d.Dispatch(context.Background(), settings.ProviderLocalMLX, "qwen", "fix this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fixed after reload" {
		t.Errorf("got %q", got)
	}
	if calls != 2 {
		t.Errorf("expected 2 /process calls, got %d", calls)
	}
}

func TestDispatchLocalMLXUsesDefaultBaseURL(t *testing.T) {
	d := NewDispatcher(testStore(nil), nil)
	if got := d.mlxBaseURL(); got != defaultMLXBaseURL {
		t.Errorf("got %q, want %q", got, defaultMLXBaseURL)
	}
}

func TestStripInvisibleRemovesZeroWidthChars(t *testing.T) {
	got := stripInvisible("hello​world﻿")
	if got != "helloworld" {
		t.Errorf("got %q", got)
	}
}
