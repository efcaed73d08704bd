package configs

import (
	"fmt"
	"os"
	"sort"
)

// FileSpec describes one managed secret: where its ciphertext lives, where
// the decrypted output lands, and who may read it.
type FileSpec struct {
	// Source is the encrypted file, relative to the project root.
	Source string `toml:"source"`

	// Dest is where decrypted material should land, relative to the project
	// root unless absolute.
	Dest string `toml:"dest"`

	// Permissions is an octal mode string for the decrypted output, e.g. "0600".
	Permissions string `toml:"permissions"`

	// DirectoryPermissions is the octal mode for created parent directories.
	DirectoryPermissions string `toml:"directory_permissions"`

	// MakeDirectory creates missing parent directories of Dest.
	MakeDirectory bool `toml:"make_directory"`

	// Owner and Group name the desired owner of the decrypted output.
	// Applying them is skipped when not running as root.
	Owner string `toml:"owner"`
	Group string `toml:"group"`

	// Recipients lists public keys allowed to decrypt this file, in
	// age X25519 or SSH authorized-key form.
	Recipients []string `toml:"recipients"`
}

// Manifest is the project configuration stored in arcanum.toml.
type Manifest struct {
	// AdminRecipients are appended to every file's recipient list.
	AdminRecipients []string `toml:"admin_recipients"`

	// Files maps a short name to each managed secret.
	Files map[string]FileSpec `toml:"files"`
}

// LoadManifest reads arcanum.toml for the current project.
// InitProjectSettings must have been called first.
func LoadManifest() (*Manifest, error) {
	manifestPath := ProjectArcanumSettings.ManifestPath
	if manifestPath == "" {
		return nil, fmt.Errorf("project settings not initialized")
	}

	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest not found at %s", manifestPath)
	}

	manifest := &Manifest{
		Files: make(map[string]FileSpec),
	}
	if err := LoadTOML(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return manifest, nil
}

// SaveManifest writes the manifest back to arcanum.toml.
func SaveManifest(manifest *Manifest) error {
	manifestPath := ProjectArcanumSettings.ManifestPath
	if manifestPath == "" {
		return fmt.Errorf("project settings not initialized")
	}
	if err := SaveTOML(manifestPath, manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// RecipientLinesFor returns the union of a source file's recipients and the
// admin recipients, sorted and deduplicated. The result is empty when the
// source is not managed by the manifest.
func (m *Manifest) RecipientLinesFor(source string) []string {
	seen := make(map[string]struct{})
	var lines []string

	add := func(keys []string) {
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			lines = append(lines, k)
		}
	}

	matched := false
	for _, spec := range m.Files {
		if spec.Source == source {
			matched = true
			add(spec.Recipients)
		}
	}
	if !matched {
		return nil
	}
	add(m.AdminRecipients)

	sort.Strings(lines)
	return lines
}

// SpecFor returns the manifest entry whose source matches the given path.
// When several entries share a source, the lexicographically first name wins.
func (m *Manifest) SpecFor(source string) (string, FileSpec, bool) {
	for _, name := range m.SortedNames() {
		if spec := m.Files[name]; spec.Source == source {
			return name, spec, true
		}
	}
	return "", FileSpec{}, false
}

// SortedNames returns the manifest entry names in stable order.
func (m *Manifest) SortedNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
