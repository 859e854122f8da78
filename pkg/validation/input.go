// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks client-supplied strings before they reach
// lookups, logs or span attributes.
//
// Element ids and search queries arrive from HTTP bodies, query strings and
// websocket messages. They are only ever used as map keys and substring
// needles, but they are also logged and attached to traces, so control
// characters and unbounded lengths are rejected at the edge.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxIDLength bounds element ids in bytes. Edge ids join two cell ids.
	MaxIDLength = 1024

	// MaxQueryLength bounds search queries in runes.
	MaxQueryLength = 256

	// MaxChainLength bounds the number of ids in a pointer chain.
	MaxChainLength = 64
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// ValidateElementID validates a node, cell, edge or cluster id.
//
// Valid ids:
//   - 1 to MaxIDLength bytes
//   - valid UTF-8
//   - no control characters (tabs and newlines included)
//
// Example:
//
//	if err := validation.ValidateElementID(req.ID); err != nil {
//	    return fmt.Errorf("select: %w", err)
//	}
func ValidateElementID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidInput)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id exceeds %d bytes", ErrInvalidInput, MaxIDLength)
	}
	return checkText("id", id)
}

// ValidateChain validates a pointer chain. Empty entries are allowed and
// ignored, since decorative elements often carry no id.
func ValidateChain(chain []string) error {
	if len(chain) > MaxChainLength {
		return fmt.Errorf("%w: chain exceeds %d ids", ErrInvalidInput, MaxChainLength)
	}
	for _, id := range chain {
		if id == "" {
			continue
		}
		if err := ValidateElementID(id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuery validates a search query. An empty query is valid and
// matches nothing.
func ValidateQuery(q string) error {
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return fmt.Errorf("%w: query exceeds %d characters", ErrInvalidInput, MaxQueryLength)
	}
	return checkText("query", q)
}

// SanitizeQuery trims and validates a search query.
//
//	q, err := validation.SanitizeQuery(c.Query("q"))
//	if err != nil {
//	    return err
//	}
func SanitizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if err := ValidateQuery(q); err != nil {
		return "", err
	}
	return q, nil
}

func checkText(field, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, field)
	}
	if i := strings.IndexFunc(s, unicode.IsControl); i >= 0 {
		return fmt.Errorf("%w: %s has a control character at byte %d", ErrInvalidInput, field, i)
	}
	return nil
}
