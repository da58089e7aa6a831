/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/stretchr/testify/require"
)

var fastRetry = retry.Config{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

const spanishVerbose = `{
  "task": "transcribe",
  "language": "spanish",
  "duration": 8.5,
  "text": " Hola, esta es la demo. ",
  "segments": [
    {"id": 0, "start": 0, "end": 4, "text": " Hola,", "avg_logprob": -0.1, "compression_ratio": 1.4, "no_speech_prob": 0.01},
    {"id": 1, "start": 4, "end": 8.5, "text": " esta es la demo.", "avg_logprob": -0.2, "compression_ratio": 1.6, "no_speech_prob": 0.02}
  ]
}`

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3 fake audio"), 0o644))
	return path
}

type whisperServer struct {
	transcriptions atomic.Int32
	translations   atomic.Int32
	status         int
	failFirst      bool
}

func (s *whisperServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		n := s.transcriptions.Add(1)
		if s.status != 0 {
			w.WriteHeader(s.status)
			w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
			return
		}
		if s.failFirst && n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": {"message": "busy"}}`))
			return
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			http.Error(w, "response_format = "+got, http.StatusBadRequest)
			return
		}
		w.Write([]byte(spanishVerbose))
	case strings.HasSuffix(r.URL.Path, "/audio/translations"):
		s.translations.Add(1)
		w.Write([]byte(`{"text": " Hello, this is the demo. "}`))
	default:
		http.NotFound(w, r)
	}
}

func TestTranscribe(t *testing.T) {
	tests := []struct {
		name           string
		translate      bool
		wantText       string
		wantTranslated bool
		translations   int32
	}{{
		name:           "translated",
		translate:      true,
		wantText:       "Hello, this is the demo.",
		wantTranslated: true,
		translations:   1,
	}, {
		name:     "original language",
		wantText: "Hola, esta es la demo.",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := &whisperServer{failFirst: true}
			srv := httptest.NewServer(ws)
			defer srv.Close()

			w, err := New("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry))
			require.NoError(t, err)

			tr, err := w.Transcribe(context.Background(), audioFile(t), tt.translate)
			require.NoError(t, err)
			require.Equal(t, tt.wantText, tr.Text)
			require.Equal(t, tt.wantTranslated, tr.Translated)
			require.Equal(t, "spanish", tr.Language)
			require.InDelta(t, 8.5, tr.Duration, 1e-9)
			require.Len(t, tr.Segments, 2)
			require.Equal(t, RatingHigh, tr.Quality.Rating)
			require.Equal(t, int32(2), ws.transcriptions.Load(), "one retry after 503")
			require.Equal(t, tt.translations, ws.translations.Load())
		})
	}
}

func TestTranscribeErrors(t *testing.T) {
	ws := &whisperServer{status: http.StatusUnauthorized}
	srv := httptest.NewServer(ws)
	defer srv.Close()

	w, err := New("bad-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry))
	require.NoError(t, err)

	_, err = w.Transcribe(context.Background(), audioFile(t), true)
	require.True(t, errors.Is(err, provider.ErrAuthentication), "Transcribe() = %v, want ErrAuthentication", err)
	require.Equal(t, int32(1), ws.transcriptions.Load())

	_, err = w.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), false)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = New("")
	require.ErrorIs(t, err, provider.ErrAuthentication)
}
