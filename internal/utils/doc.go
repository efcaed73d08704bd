// Package utils provides small filesystem and IO helpers shared across
// Arcanum packages: project-root discovery and stdin handling.
package utils
