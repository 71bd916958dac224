// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// package naming holds the collision-safe naming strategies used when a key
// is persisted under a name that is already taken. Strategies are plain
// functions so they can be tested in isolation and swapped at store
// construction time.
package naming

import "fmt"

// Strategy derives the final persisted name for a candidate. taken reports
// whether a name is already in use in the backing location.
type Strategy func(candidate string, taken func(string) bool) string

// Exact returns the candidate unchanged. Persisting under a taken name then
// replaces the existing entry.
func Exact(candidate string, taken func(string) bool) string {
	return candidate
}

// Suffix returns the candidate if free, otherwise the first of
// "name-2", "name-3", ... that is not taken. This mirrors how a file picker
// lands a freshly imported file next to an existing one instead of
// overwriting it.
func Suffix(candidate string, taken func(string) bool) string {
	if !taken(candidate) {
		return candidate
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s-%d", candidate, i)
		if !taken(name) {
			return name
		}
	}
}
