/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package providertest provides a scripted provider.Interface for tests.
package providertest

import (
	"context"
	"sync"

	"chainguard.dev/demoreview/agents/provider"
)

// Fake answers each request with Respond and records the requests it saw.
// It is safe for concurrent use.
type Fake struct {
	// Respond produces the answer for a request. A nil Respond returns "{}".
	Respond func(req *provider.Request) (string, error)

	mu       sync.Mutex
	requests []*provider.Request
}

var _ provider.Interface = (*Fake)(nil)

// Name implements provider.Interface.
func (*Fake) Name() string { return "fake" }

// Model implements provider.Interface.
func (*Fake) Model() string { return "fake-model" }

// Complete implements provider.Interface.
func (f *Fake) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Respond == nil {
		return &provider.Response{Text: "{}", Model: f.Model()}, nil
	}
	text, err := f.Respond(req)
	if err != nil {
		return nil, err
	}
	return &provider.Response{Text: text, Model: f.Model()}, nil
}

// Requests returns a copy of the requests received so far.
func (f *Fake) Requests() []*provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*provider.Request(nil), f.requests...)
}
