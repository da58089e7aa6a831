/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{{
		name: "prompt only",
		req:  &Request{Prompt: "grade this"},
	}, {
		name: "with image",
		req:  &Request{Prompt: "describe", Images: []Image{{MIMEType: "image/jpeg", Data: []byte{1}}}},
	}, {
		name:    "nil",
		wantErr: true,
	}, {
		name:    "blank prompt",
		req:     &Request{Prompt: "  "},
		wantErr: true,
	}, {
		name:    "empty image",
		req:     &Request{Prompt: "describe", Images: []Image{{MIMEType: "image/jpeg"}}},
		wantErr: true,
	}, {
		name:    "image without type",
		req:     &Request{Prompt: "describe", Images: []Image{{Data: []byte{1}}}},
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaxTokensOrDefault(t *testing.T) {
	if got := (&Request{}).MaxTokensOrDefault(); got != DefaultMaxTokens {
		t.Errorf("default = %d, want %d", got, DefaultMaxTokens)
	}
	if got := (&Request{MaxTokens: 100}).MaxTokensOrDefault(); got != 100 {
		t.Errorf("explicit = %d, want 100", got)
	}
}

func TestAuthErrorAndOutcome(t *testing.T) {
	backend := errors.New("401 invalid x-api-key")
	err := AuthError(Anthropic, backend)
	if !errors.Is(err, ErrAuthentication) || !errors.Is(err, backend) {
		t.Errorf("AuthError() = %v, want both sentinels", err)
	}

	for err, want := range map[error]string{
		nil:                                   "ok",
		err:                                   "auth",
		fmt.Errorf("x: %w", context.Canceled): "cancelled",
		context.DeadlineExceeded:              "cancelled",
		backend:                               "error",
	} {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
