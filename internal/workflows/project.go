package workflows

import (
	"fmt"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/configs"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// projectContext locates the project and loads its manifest.
func projectContext() (string, *configs.Manifest, error) {
	if err := configs.InitProjectSettings(); err != nil {
		return "", nil, fmt.Errorf("initializing project settings: %w", err)
	}

	root := configs.ProjectArcanumSettings.ProjectPath
	if root == "" {
		return "", nil, kerrors.ErrProjectNotInitialized
	}

	manifest, err := configs.LoadManifest()
	if err != nil {
		return "", nil, fmt.Errorf("loading manifest: %w", err)
	}
	return root, manifest, nil
}

// relSource normalizes a user-supplied path to the project-relative form
// used as manifest source and cache key.
func relSource(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("resolving %s against project root: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// recipientsFor parses the recipient set configured for a managed source.
func recipientsFor(manifest *configs.Manifest, source string) (*secrets.RecipientSet, error) {
	lines := manifest.RecipientLinesFor(source)
	if lines == nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotManaged, source)
	}

	set, err := secrets.ParseRecipients(lines)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrEmptyRecipients, source)
	}
	return set, nil
}

// openCache opens the derived cache for a project root.
func openCache(root string) (*secrets.CacheStore, error) {
	return secrets.OpenCache(configs.CacheFilePath(root), root)
}
