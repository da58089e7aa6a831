/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"strconv"
	"strings"
)

// DefaultVersion is assumed for documents that carry no version.
const DefaultVersion = "1.0"

// IncrementVersion bumps the minor segment of a "major.minor" version.
// Versions without a minor segment, or whose minor segment is not an integer,
// get ".1" appended verbatim. Segments after the minor are dropped.
func IncrementVersion(v string) string {
	parts := strings.Split(v, ".")
	if len(parts) < 2 {
		return v + ".1"
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return v + ".1"
	}
	return parts[0] + "." + strconv.Itoa(minor+1)
}
