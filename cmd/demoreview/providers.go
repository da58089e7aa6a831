/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"

	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/provider/claudeprovider"
	"chainguard.dev/demoreview/agents/provider/googleprovider"
	"chainguard.dev/demoreview/agents/provider/openaiprovider"
)

// newProvider builds the named model backend from cfg. Missing credentials
// surface as provider.ErrAuthentication.
func newProvider(ctx context.Context, cfg config, name string) (provider.Interface, error) {
	switch name {
	case provider.OpenAI:
		var opts []openaiprovider.Option
		if cfg.OpenAIModel != "" {
			opts = append(opts, openaiprovider.WithModel(cfg.OpenAIModel))
		}
		return openaiprovider.New(cfg.OpenAIAPIKey, opts...)

	case provider.Anthropic:
		var opts []claudeprovider.Option
		switch {
		case cfg.AnthropicAPIKey != "":
			opts = append(opts, claudeprovider.WithAPIKey(cfg.AnthropicAPIKey))
		case cfg.GoogleProject != "":
			opts = append(opts, claudeprovider.WithVertex(ctx, cfg.GoogleProject, cfg.GoogleRegion))
		}
		if cfg.AnthropicModel != "" {
			opts = append(opts, claudeprovider.WithModel(cfg.AnthropicModel))
		}
		return claudeprovider.New(opts...)

	case provider.Google:
		var opts []googleprovider.Option
		switch {
		case cfg.GeminiAPIKey != "":
			opts = append(opts, googleprovider.WithAPIKey(cfg.GeminiAPIKey))
		case cfg.GoogleProject != "":
			opts = append(opts, googleprovider.WithVertex(cfg.GoogleProject, cfg.GoogleRegion))
		}
		if cfg.GoogleModel != "" {
			opts = append(opts, googleprovider.WithModel(cfg.GoogleModel))
		}
		return googleprovider.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q, want %s, %s or %s", name, provider.OpenAI, provider.Anthropic, provider.Google)
	}
}
