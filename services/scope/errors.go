// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import "errors"

// Sentinel errors for the scope service.
var (
	// ErrSessionNotFound indicates an unknown or reaped session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions indicates the session cap was reached.
	ErrTooManySessions = errors.New("too many open sessions")

	// ErrNoScene indicates no graph document has been loaded yet.
	ErrNoScene = errors.New("no graph loaded")

	// ErrServiceClosed indicates the service was shut down.
	ErrServiceClosed = errors.New("service closed")

	// ErrInvalidTarget indicates a select request with an unknown kind.
	ErrInvalidTarget = errors.New("invalid selection target")
)
