// Package ui provides consistent terminal formatting for Arcanum output.
//
// Formatters carry semantic meaning (Success, Error, Path, ...) rather than
// raw colors, so output stays readable when color is disabled via NO_COLOR
// or a non-terminal stdout.
package ui
