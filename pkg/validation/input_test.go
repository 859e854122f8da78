// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateElementID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid ids
		{"node", "src/main.go", false},
		{"cell", "src/main.go:12_4", false},
		{"edge", "a:f -> b:g", false},
		{"unicode", "pkg/größe.go:f", false},
		{"max length", strings.Repeat("a", MaxIDLength), false},

		// Invalid ids
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true},
		{"newline", "a\nb", true},
		{"tab", "a\tb", true},
		{"nul", "a\x00", true},
		{"bad utf8", "a\xffb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElementID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElementID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateElementID(%q) error = %v, want ErrInvalidInput", tt.id, err)
			}
		})
	}
}

func TestValidateChain(t *testing.T) {
	long := make([]string, MaxChainLength+1)
	for i := range long {
		long[i] = "x"
	}

	tests := []struct {
		name    string
		chain   []string
		wantErr bool
	}{
		{"nil", nil, false},
		{"ids", []string{"text", "a:f", "a"}, false},
		{"empty entries skipped", []string{"", "a"}, false},
		{"control char", []string{"a", "b\r"}, true},
		{"too long", long, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChain(tt.chain)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChain(%v) error = %v, wantErr %v", tt.chain, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       string
		want    string
		wantErr bool
	}{
		{"passthrough", "Handle", "Handle", false},
		{"trimmed", "  Handle  ", "Handle", false},
		{"empty", "", "", false},
		{"max runes", strings.Repeat("ä", MaxQueryLength), strings.Repeat("ä", MaxQueryLength), false},
		{"too long", strings.Repeat("a", MaxQueryLength+1), "", true},
		{"escape", "a\x1b[31m", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeQuery(tt.q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeQuery(%q) error = %v, wantErr %v", tt.q, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.q, got, tt.want)
			}
		})
	}
}
