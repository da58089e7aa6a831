/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package importer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/rubric/store"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "name": "Sales Demo - Q3",
  "version": "2.0",
  "categories": [{
    "category_id": "content", "label": "Content", "weight": 1.0, "max_points": 10,
    "criteria": [{"criterion_id": "clarity", "label": "Clarity", "desc": "Clear", "max_points": 10}]
  }],
  "scale": {"min": 0, "max": 10},
  "overall_method": "total_points",
  "thresholds": {"pass": 7, "revise": 5}
}`

const sampleYAML = `name: YAML Rubric
criteria:
  - id: clarity
    label: Clarity
    desc: Clear
    weight: 1.0
scale: {min: 1, max: 10}
overall_method: weighted_mean
thresholds: {pass: 7, revise: 5}
`

func newImporter(t *testing.T, opts ...Option) (*Importer, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	imp, err := New(st, append([]Option{WithRetries(0)}, opts...)...)
	require.NoError(t, err)
	return imp, st
}

func TestFetchFile(t *testing.T) {
	ctx := context.Background()
	imp, _ := newImporter(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "r.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0o644))
	doc, err := imp.Fetch(ctx, jsonPath)
	require.NoError(t, err)
	require.Equal(t, "Sales Demo - Q3", doc["name"])
	ok, reason := rubric.Validate(doc)
	require.True(t, ok, reason)

	yamlPath := filepath.Join(dir, "r.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))
	doc, err = imp.Fetch(ctx, yamlPath)
	require.NoError(t, err)
	ok, reason = rubric.Validate(doc)
	require.True(t, ok, reason)
	require.Equal(t, rubric.FormatLegacy, rubric.DetectFormat(doc))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{not json"), 0o644))
	_, err = imp.Fetch(ctx, badPath)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = imp.Fetch(ctx, filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchURL(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/rubric.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleJSON))
		case "/rubric":
			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte(sampleYAML))
		case "/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	imp, _ := newImporter(t, WithHTTPClient(srv.Client()))

	doc, err := imp.Fetch(ctx, srv.URL+"/rubric.json")
	require.NoError(t, err)
	require.Equal(t, "2.0", doc["version"])

	doc, err = imp.Fetch(ctx, srv.URL+"/rubric")
	require.NoError(t, err)
	require.Equal(t, "YAML Rubric", doc["name"])

	_, err = imp.Fetch(ctx, srv.URL+"/missing.json")
	require.ErrorContains(t, err, "404")

	_, err = imp.Fetch(ctx, "ftp://example.com/rubric.json")
	require.ErrorIs(t, err, ErrMalformed)

	retrying, _ := newImporter(t, WithHTTPClient(srv.Client()), WithRetries(1))
	retrying.client.RetryWaitMin = 0
	retrying.client.RetryWaitMax = 0
	before := calls.Load()
	_, err = retrying.Fetch(ctx, srv.URL+"/flaky")
	require.Error(t, err)
	require.Equal(t, int32(2), calls.Load()-before)
}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{{
		name: "spaces and hyphens",
		doc:  map[string]any{"name": "Sales Demo - Q3"},
		want: "sales_demo___q3",
	}, {
		name: "punctuation dropped",
		doc:  map[string]any{"name": "Partner's (v2) Rubric!"},
		want: "partners_v2_rubric",
	}, {
		name: "missing name",
		doc:  map[string]any{},
		want: "imported_rubric",
	}, {
		name: "nothing usable",
		doc:  map[string]any{"name": "!!!"},
		want: "imported_rubric",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestName(tt.doc); got != tt.want {
				t.Errorf("SuggestName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckName(t *testing.T) {
	for name, ok := range map[string]bool{
		"sales_demo": true,
		"sales-demo": true,
		"Demo2":      true,
		"":           false,
		"  ":         false,
		"demo.json":  false,
		"../escape":  false,
		"with space": false,
	} {
		if err := CheckName(name); (err == nil) != ok {
			t.Errorf("CheckName(%q) = %v, want ok=%v", name, err, ok)
		}
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	imp, st := newImporter(t)
	doc, err := rubric.ParseDocument([]byte(sampleJSON))
	require.NoError(t, err)

	require.NoError(t, imp.Save(ctx, doc, "sales", false))
	require.True(t, st.Exists("sales"))

	err = imp.Save(ctx, doc, "sales", false)
	require.True(t, errors.Is(err, ErrExists), "Save() = %v, want ErrExists", err)

	require.NoError(t, imp.Save(ctx, doc, "sales", true))
	versions, err := st.ListVersions(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, store.TypeBackup, versions[1].Type)

	require.Error(t, imp.Save(ctx, doc, "bad name", false))
}
