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

// Package ui provides colored terminal output helpers for the CLI.
// Color is disabled automatically when stdout is not a TTY or when
// NO_COLOR is set.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// DisableColor turns off all color output (the --no-color flag).
func DisableColor() {
	color.NoColor = true
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	subColor     = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
	countColor   = color.New(color.FgMagenta)
)

// Header prints a bold section header.
func Header(text string) {
	headerColor.Println(text)
}

// SubHeader prints a secondary header.
func SubHeader(text string) {
	subColor.Println(text)
}

// Label prints an aligned "label: value" line.
func Label(label, value string) {
	fmt.Printf("  %s %s\n", dimColor.Sprintf("%-18s", label+":"), value)
}

// CountText formats a count for inline display.
func CountText(n int) string {
	return countColor.Sprintf("%d", n)
}

// DimText formats dimmed auxiliary text.
func DimText(text string) string {
	return dimColor.Sprint(text)
}

// Success prints a success line.
func Success(text string) {
	successColor.Println("✓ " + text)
}

// Successf prints a formatted success line.
func Successf(format string, args ...any) {
	Success(fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func Info(text string) {
	fmt.Println(text)
}

// Infof prints a formatted informational line.
func Infof(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Warning prints a warning line to stderr.
func Warning(text string) {
	warnColor.Fprintln(os.Stderr, "! "+text)
}

// Warningf prints a formatted warning line to stderr.
func Warningf(format string, args ...any) {
	Warning(fmt.Sprintf(format, args...))
}

// Error prints an error line to stderr.
func Error(text string) {
	errorColor.Fprintln(os.Stderr, "✗ "+text)
}
