/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import "testing"

func TestIncrementVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{{
		in:   "1.0",
		want: "1.1",
	}, {
		in:   "2.9",
		want: "2.10",
	}, {
		in:   "v",
		want: "v.1",
	}, {
		in:   "3",
		want: "3.1",
	}, {
		in:   "1.x",
		want: "1.x.1",
	}, {
		in:   "1.2.3",
		want: "1.3",
	}, {
		in:   "",
		want: ".1",
	}}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IncrementVersion(tt.in); got != tt.want {
				t.Errorf("IncrementVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
