// Package audit appends a JSONL trail of mutating operations to
// .arcanum/audit.jsonl in the project. Entries record who did what to
// which files, never any key material or plaintext. Logging is
// best-effort and never fails the operation being logged.
package audit
