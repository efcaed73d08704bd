// Package editor invokes the external text editor on a decrypted working
// copy. The edit step is a genuine blocking suspension point: the calling
// operation waits for the editor to return control, and cancellation kills
// the subprocess so scoped cleanup can run.
package editor
