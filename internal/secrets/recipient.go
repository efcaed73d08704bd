package secrets

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"filippo.io/age"
	"filippo.io/age/agessh"
	"golang.org/x/crypto/ssh"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// Recipient is a single public key authorized to decrypt a file. Immutable
// once parsed. Equality is by canonical key bytes, not textual form.
type Recipient struct {
	key       age.Recipient
	line      string
	canonical string
	kind      string
}

// Kind reports the recipient's algorithm variant: "age" for native X25519
// keys, or the SSH key type ("ssh-ed25519", "ssh-rsa").
func (r Recipient) Kind() string { return r.kind }

// Line returns the textual form the recipient was parsed from.
func (r Recipient) Line() string { return r.line }

// RecipientSet is an ordered, deduplicated set of recipients. The order is
// the input order (stable for reproducible output); the fingerprint is
// order-insensitive.
type RecipientSet struct {
	recipients []Recipient
}

// ParseRecipients parses textual public keys into a RecipientSet. Each line
// is either an age X25519 encoding ("age1...") or an SSH authorized-key
// line. Parsing fails on the first malformed entry with the 1-based line
// number and reason.
func ParseRecipients(lines []string) (*RecipientSet, error) {
	set := &RecipientSet{}
	seen := make(map[string]struct{})

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		recipient, err := parseRecipientLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", kerrors.ErrRecipientParse, i+1, err)
		}

		if _, dup := seen[recipient.canonical]; dup {
			continue
		}
		seen[recipient.canonical] = struct{}{}
		set.recipients = append(set.recipients, recipient)
	}

	return set, nil
}

func parseRecipientLine(line string) (Recipient, error) {
	if strings.HasPrefix(line, "age1") {
		key, err := age.ParseX25519Recipient(line)
		if err != nil {
			return Recipient{}, err
		}
		// String() yields the normalized bech32 encoding, which is the
		// canonical form for native keys.
		return Recipient{key: key, line: line, canonical: key.String(), kind: "age"}, nil
	}

	pubKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return Recipient{}, fmt.Errorf("not an age or SSH public key: %v", err)
	}
	key, err := agessh.ParseRecipient(line)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{
		key:       key,
		line:      line,
		canonical: string(pubKey.Marshal()),
		kind:      pubKey.Type(),
	}, nil
}

// Len returns the number of distinct recipients.
func (s *RecipientSet) Len() int { return len(s.recipients) }

// AgeRecipients returns the underlying age recipients in input order.
func (s *RecipientSet) AgeRecipients() []age.Recipient {
	out := make([]age.Recipient, len(s.recipients))
	for i, r := range s.recipients {
		out[i] = r.key
	}
	return out
}

// Lines returns the textual forms in input order.
func (s *RecipientSet) Lines() []string {
	out := make([]string, len(s.recipients))
	for i, r := range s.recipients {
		out[i] = r.line
	}
	return out
}

// Fingerprint returns a stable hex-encoded hash over the canonical key bytes
// in sorted order. Sorting makes the fingerprint independent of manifest
// ordering, so reordering recipients in configuration never invalidates a
// cache entry.
func (s *RecipientSet) Fingerprint() string {
	canonicals := make([]string, len(s.recipients))
	for i, r := range s.recipients {
		canonicals[i] = r.canonical
	}
	sort.Strings(canonicals)

	h := sha256.New()
	var lenBuf [4]byte
	for _, c := range canonicals {
		// Length-prefix each key so concatenations cannot collide.
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c)))
		h.Write(lenBuf[:])
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}
