// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package letterboxd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYearFromSlug(t *testing.T) {
	tests := []struct {
		slug     string
		expected string
	}{
		{"parasite-2019", "2019"},
		{"dune-1984", "1984"},
		{"blade-runner-2049", ""},
		{"1917", ""},
		{"the-tree-of-life", ""},
		{"city-lights-1850", ""},
		{"future-film-2027", "2027"},
	}

	for _, tc := range tests {
		t.Run(tc.slug, func(t *testing.T) {
			assert.Equal(t, tc.expected, YearFromSlug(tc.slug, testNow))
		})
	}
}

func TestFilm_String(t *testing.T) {
	assert.Equal(t, "Parasite (2019)", Film{Title: "Parasite", Year: "2019"}.String())
	assert.Equal(t, "Parasite", Film{Title: "Parasite"}.String())
}
