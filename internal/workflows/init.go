package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/audit"
	"github.com/arcanum-sh/arcanum/internal/configs"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/utils"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Dir is where the project is created; empty uses the working directory.
	Dir string

	// AdminRecipients seeds the manifest's admin recipient list.
	AdminRecipients []string

	// Force overwrites an existing manifest.
	Force bool
}

// InitResult contains the outcome of project initialization.
type InitResult struct {
	// ProjectPath is the root of the new project.
	ProjectPath string

	// ManifestPath is the created arcanum.toml.
	ManifestPath string
}

// Init scaffolds a new project: an arcanum.toml manifest and the .arcanum
// directory for the audit trail.
//
// Returns ErrProjectAlreadyInitialized if a manifest already exists and Force
// is not set.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Dir, err)
	}

	manifestPath := filepath.Join(dir, utils.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil && !opts.Force {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrProjectAlreadyInitialized, manifestPath)
	}

	if err := os.MkdirAll(filepath.Join(dir, ".arcanum"), 0700); err != nil {
		return nil, fmt.Errorf("creating .arcanum directory: %w", err)
	}

	manifest := &configs.Manifest{
		AdminRecipients: opts.AdminRecipients,
		Files:           make(map[string]configs.FileSpec),
	}
	if err := configs.SaveTOML(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	if err := configs.InitProjectSettingsFrom(dir); err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("init")
	entry.Dest = manifestPath
	audit.Log(entry)

	return &InitResult{ProjectPath: dir, ManifestPath: manifestPath}, nil
}
