/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/stretchr/testify/require"
)

const okMessage = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "{\"scores\": []}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 42, "output_tokens": 7}
}`

var fastRetry = retry.Config{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okMessage))
	}))
	defer srv.Close()

	p, err := New(WithAPIKey("test-key"), WithBaseURL(srv.URL), WithRetryConfig(fastRetry))
	require.NoError(t, err)
	require.Equal(t, provider.Anthropic, p.Name())

	resp, err := p.Complete(context.Background(), &provider.Request{
		System: "You grade demos.",
		Prompt: "Grade it.",
		Images: []provider.Image{{MIMEType: "image/jpeg", Data: []byte("jpeg")}},
	})
	require.NoError(t, err)
	require.Equal(t, `{"scores": []}`, resp.Text)
	require.Equal(t, int64(42), resp.InputTokens)
	require.Equal(t, int64(7), resp.OutputTokens)

	require.Equal(t, DefaultModel, body["model"])
	messages := body["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	require.Equal(t, "image", content[0].(map[string]any)["type"])
	require.Equal(t, "text", content[1].(map[string]any)["type"])
	system := body["system"].([]any)
	require.Equal(t, "You grade demos.", system[0].(map[string]any)["text"])
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantAuth  bool
	}{{
		name:      "unauthorized",
		status:    http.StatusUnauthorized,
		wantCalls: 1,
		wantAuth:  true,
	}, {
		name:      "forbidden",
		status:    http.StatusForbidden,
		wantCalls: 1,
		wantAuth:  true,
	}, {
		name:      "overloaded retries",
		status:    529,
		wantCalls: 3,
	}, {
		name:      "bad request does not retry",
		status:    http.StatusBadRequest,
		wantCalls: 1,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`))
			}))
			defer srv.Close()

			p, err := New(WithAPIKey("test-key"), WithBaseURL(srv.URL), WithRetryConfig(fastRetry))
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), &provider.Request{Prompt: "Grade it."})
			require.Error(t, err)
			require.Equal(t, tt.wantAuth, errors.Is(err, provider.ErrAuthentication), "err = %v", err)
			require.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, provider.ErrAuthentication)

	_, err = New(WithAPIKey("k"), WithModel("gpt-4o"))
	require.ErrorContains(t, err, "does not appear to be a Claude model")

	_, err = New(WithAPIKey(""))
	require.Error(t, err)

	_, err = New(WithAPIKey("k"), WithRetryConfig(retry.Config{MaxRetries: -1}))
	require.Error(t, err)
}
