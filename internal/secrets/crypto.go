package secrets

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// FormatVersion is the intro line of the encrypted file format. Arcanum
// stores ciphertext in the age v1 format (chunked ChaCha20-Poly1305 payload,
// one key-wrapping stanza per recipient) so files interoperate with standard
// age tooling.
const FormatVersion = "age-encryption.org/v1"

// Encrypt encrypts plaintext to every recipient in the set and returns the
// ASCII-armored ciphertext. A fresh file key is generated on every call, so
// re-encrypting identical plaintext yields different bytes.
//
// Returns ErrEmptyRecipients if the set is empty.
func Encrypt(plaintext []byte, recipients *RecipientSet) ([]byte, error) {
	if recipients == nil || recipients.Len() == 0 {
		return nil, kerrors.ErrEmptyRecipients
	}

	var buf bytes.Buffer
	armorWriter := armor.NewWriter(&buf)
	w, err := age.Encrypt(armorWriter, recipients.AgeRecipients()...)
	if err != nil {
		_ = armorWriter.Close()
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		_ = w.Close()
		_ = armorWriter.Close()
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	// Close the age writer first so the final chunk and its tag are flushed
	// before the armor footer.
	if err := w.Close(); err != nil {
		_ = armorWriter.Close()
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("age armor: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt decrypts a ciphertext with the first identity able to unwrap its
// file key. ASCII armor is detected and handled transparently.
//
// Returns ErrNoMatchingRecipient if no identity can unwrap the file key.
// Returns ErrAuthenticationFailure if the header MAC or any payload chunk
// fails its authentication check; no partial plaintext is returned.
// Returns ErrMalformedBlob if the input is not a valid encrypted file.
func Decrypt(blob []byte, identities ...*Identity) ([]byte, error) {
	if len(identities) == 0 {
		return nil, fmt.Errorf("%w: no identity supplied", kerrors.ErrNoMatchingRecipient)
	}

	r, err := age.Decrypt(dearmored(blob), ageIdentities(identities)...)
	if err != nil {
		return nil, classifyDecryptError(err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		// A failed chunk tag surfaces here. Discard everything read so far;
		// partial plaintext past a failing chunk must never escape.
		return nil, fmt.Errorf("%w: %v", kerrors.ErrAuthenticationFailure, err)
	}
	return plaintext, nil
}

func dearmored(blob []byte) io.Reader {
	if bytes.HasPrefix(bytes.TrimSpace(blob), []byte(armor.Header)) {
		return armor.NewReader(bytes.NewReader(blob))
	}
	return bytes.NewReader(blob)
}

func classifyDecryptError(err error) error {
	var noMatch *age.NoIdentityMatchError
	if errors.As(err, &noMatch) {
		return fmt.Errorf("%w", kerrors.ErrNoMatchingRecipient)
	}
	// A bad header MAC means the header was altered after encryption.
	if strings.Contains(err.Error(), "MAC") {
		return fmt.Errorf("%w: %v", kerrors.ErrAuthenticationFailure, err)
	}
	return fmt.Errorf("%w: %v", kerrors.ErrMalformedBlob, err)
}

// BlobInfo describes an encrypted file's header without decrypting it.
type BlobInfo struct {
	// Version is the format intro line.
	Version string

	// RecipientStanzas holds the type tag of each key-wrapping entry, in
	// header order ("X25519", "ssh-ed25519", "ssh-rsa").
	RecipientStanzas []string
}

// RecipientCount returns the number of wrapped-key entries in the header.
func (b *BlobInfo) RecipientCount() int { return len(b.RecipientStanzas) }

// Inspect parses an encrypted file's header. It reads only up to the header
// MAC line and never touches the payload, so it is cheap regardless of file
// size.
//
// Returns ErrMalformedBlob if the header cannot be parsed.
func Inspect(blob []byte) (*BlobInfo, error) {
	r := bufio.NewReader(dearmored(blob))

	intro, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", kerrors.ErrMalformedBlob, err)
	}
	intro = strings.TrimRight(intro, "\n")
	if intro != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format %q", kerrors.ErrMalformedBlob, intro)
	}

	info := &BlobInfo{Version: intro}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: truncated header: %v", kerrors.ErrMalformedBlob, err)
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "-> "):
			args := strings.Fields(line[3:])
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: empty stanza", kerrors.ErrMalformedBlob)
			}
			info.RecipientStanzas = append(info.RecipientStanzas, args[0])
		case strings.HasPrefix(line, "---"):
			if len(info.RecipientStanzas) == 0 {
				return nil, fmt.Errorf("%w: no recipient stanzas", kerrors.ErrMalformedBlob)
			}
			return info, nil
		default:
			// Stanza body line (wrapped key material); nothing to record.
		}
	}
}
