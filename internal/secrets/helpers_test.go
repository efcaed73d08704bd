package secrets

import (
	"testing"

	"filippo.io/age"
)

// newTestKey generates a fresh X25519 keypair and returns the identity plus a
// recipient set containing only its public key.
func newTestKey(t *testing.T) (*Identity, *RecipientSet) {
	t.Helper()

	key, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}
	identity := &Identity{
		Key:         key,
		Fingerprint: key.Recipient().String(),
		Source:      "test",
	}

	set, err := ParseRecipients([]string{key.Recipient().String()})
	if err != nil {
		t.Fatalf("failed to parse recipient: %v", err)
	}
	return identity, set
}

// newTestKeys generates n keypairs and returns the identities plus a
// recipient set holding all of their public keys.
func newTestKeys(t *testing.T, n int) ([]*Identity, *RecipientSet) {
	t.Helper()

	identities := make([]*Identity, 0, n)
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key, err := age.GenerateX25519Identity()
		if err != nil {
			t.Fatalf("failed to generate identity %d: %v", i, err)
		}
		identities = append(identities, &Identity{
			Key:         key,
			Fingerprint: key.Recipient().String(),
			Source:      "test",
		})
		lines = append(lines, key.Recipient().String())
	}

	set, err := ParseRecipients(lines)
	if err != nil {
		t.Fatalf("failed to parse recipients: %v", err)
	}
	return identities, set
}
