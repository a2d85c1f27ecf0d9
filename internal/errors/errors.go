// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors provides user-facing error types for the CLI boundary.
// Library packages return plain wrapped errors; only the commands convert
// them into UserError with remediation text and exit.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Kind categorizes a user-facing error.
type Kind string

const (
	KindConfig   Kind = "config"
	KindInput    Kind = "input"
	KindInternal Kind = "internal"
	KindStorage  Kind = "storage"
)

// UserError is an error with enough context to be actionable from a
// terminal: what happened, detail, and how to fix it.
type UserError struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	Remediation string `json:"remediation,omitempty"`
	Cause       error  `json:"-"`
}

func (e *UserError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Cause }

// NewConfigError reports a configuration problem.
func NewConfigError(message, details, remediation string, cause error) *UserError {
	return &UserError{Kind: KindConfig, Message: message, Details: details, Remediation: remediation, Cause: cause}
}

// NewInputError reports invalid user input.
func NewInputError(message, details, remediation string, cause error) *UserError {
	return &UserError{Kind: KindInput, Message: message, Details: details, Remediation: remediation, Cause: cause}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message, details, remediation string, cause error) *UserError {
	return &UserError{Kind: KindInternal, Message: message, Details: details, Remediation: remediation, Cause: cause}
}

// NewStorageError reports a graph-store failure.
func NewStorageError(message, details, remediation string, cause error) *UserError {
	return &UserError{Kind: KindStorage, Message: message, Details: details, Remediation: remediation, Cause: cause}
}

// FatalError prints an error and exits with status 1. UserErrors print
// their remediation; other errors print as-is. With jsonOutput the error is
// emitted as a JSON object on stdout for tooling.
func FatalError(err error, jsonOutput bool) {
	var ue *UserError
	if !errors.As(err, &ue) {
		ue = &UserError{Kind: KindInternal, Message: err.Error()}
	}

	if jsonOutput {
		payload, marshalErr := json.Marshal(map[string]any{
			"error":       ue.Message,
			"kind":        ue.Kind,
			"details":     ue.Details,
			"remediation": ue.Remediation,
		})
		if marshalErr == nil {
			fmt.Println(string(payload))
		} else {
			fmt.Fprintln(os.Stderr, ue.Error())
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", ue.Message)
	if ue.Details != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", ue.Details)
	}
	if ue.Remediation != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", ue.Remediation)
	}
	os.Exit(1)
}
