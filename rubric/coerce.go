/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNotNumeric = errors.New("not numeric")

// toFloat coerces a decoded JSON/YAML value into a float. Numbers, booleans
// and numeric strings are accepted.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, errNotNumeric
		}
		return f, nil
	default:
		return 0, errNotNumeric
	}
}

// toInt coerces a value into an integer. Fractional numbers truncate toward
// zero; strings must spell an integer.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, errNotNumeric
		}
		return int(n), nil
	case float32:
		return toInt(float64(n))
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, errNotNumeric
		}
		return toInt(f)
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errNotNumeric
		}
		return i, nil
	default:
		return 0, errNotNumeric
	}
}

// sameNumber reports whether a declared value equals an integer sum without
// any tolerance. Strings never match, mirroring a strict equality check.
// Booleans compare as 1 and 0, the same values toInt gives them.
func sameNumber(declared any, sum int) bool {
	switch n := declared.(type) {
	case bool:
		if n {
			return sum == 1
		}
		return sum == 0
	case float64:
		return n == float64(sum)
	case float32:
		return float64(n) == float64(sum)
	case int:
		return n == sum
	case int64:
		return n == int64(sum)
	case json.Number:
		f, err := n.Float64()
		return err == nil && f == float64(sum)
	default:
		return false
	}
}
