package secrets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/agessh"
	"golang.org/x/crypto/ssh"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// Identity is private key material plus its derived public fingerprint.
// It is supplied at each invocation and never persisted by the engine.
type Identity struct {
	Key         age.Identity
	Fingerprint string
	Source      string
}

// ResolveIdentities produces the identities contained in the file at ref.
// The file is either an age identity file (AGE-SECRET-KEY-1... lines,
// comments allowed) or an unencrypted OpenSSH private key.
//
// Returns ErrIdentityNotFound if no file exists at ref.
// Returns ErrIdentityUnreadable if the file cannot be parsed.
func ResolveIdentities(ref string) ([]*Identity, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrIdentityNotFound, ref)
		}
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIdentityUnreadable, ref, err)
	}

	if strings.Contains(string(data), "PRIVATE KEY") {
		id, err := resolveSSHIdentity(data, ref)
		if err != nil {
			return nil, err
		}
		return []*Identity{id}, nil
	}

	keys, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIdentityUnreadable, ref, err)
	}

	identities := make([]*Identity, 0, len(keys))
	for _, key := range keys {
		id := &Identity{Key: key, Source: ref}
		if x, ok := key.(*age.X25519Identity); ok {
			id.Fingerprint = x.Recipient().String()
		}
		identities = append(identities, id)
	}
	return identities, nil
}

func resolveSSHIdentity(pemBytes []byte, ref string) (*Identity, error) {
	key, err := agessh.ParseIdentity(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIdentityUnreadable, ref, err)
	}

	// Derive the public fingerprint from the private key material.
	rawKey, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIdentityUnreadable, ref, err)
	}
	signer, err := ssh.NewSignerFromKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrIdentityUnreadable, ref, err)
	}

	return &Identity{
		Key:         key,
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
		Source:      ref,
	}, nil
}

// DefaultIdentityRefs returns the conventional SSH key locations that exist
// for the current user, tried when no --identity flag is given.
func DefaultIdentityRefs() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	var refs []string
	for _, name := range []string{"id_ed25519", "id_rsa"} {
		path := filepath.Join(homeDir, ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			refs = append(refs, path)
		}
	}
	return refs
}

// ResolveIdentityRefs resolves every identity across the given references.
// When refs is empty, the default SSH key locations are used. At least one
// usable identity is required.
func ResolveIdentityRefs(refs []string) ([]*Identity, error) {
	if len(refs) == 0 {
		refs = DefaultIdentityRefs()
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no identity given and no default SSH key found", kerrors.ErrIdentityNotFound)
	}

	var identities []*Identity
	for _, ref := range refs {
		resolved, err := ResolveIdentities(ref)
		if err != nil {
			return nil, err
		}
		identities = append(identities, resolved...)
	}
	return identities, nil
}

func ageIdentities(identities []*Identity) []age.Identity {
	keys := make([]age.Identity, len(identities))
	for i, id := range identities {
		keys[i] = id.Key
	}
	return keys
}
