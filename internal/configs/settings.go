package configs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/utils"
)

type UserSettings struct {
	// UserCachePath is where derived per-project caches live.
	UserCachePath string
}

type ProjectSettings struct {
	ProjectName  string
	ProjectPath  string
	ManifestPath string
	AuditLogPath string
}

var (
	UserArcanumSettings    *UserSettings
	ProjectArcanumSettings *ProjectSettings
)

func init() {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		log.Fatalf("error getting cache directory: %s", err)
	}

	// This is independent of what repo you are in, so it is ok to init here.
	UserArcanumSettings = &UserSettings{
		UserCachePath: filepath.Join(cacheDir, "arcanum"),
	}
	ProjectArcanumSettings = &ProjectSettings{}
}

// InitProjectSettings locates the project root (the directory holding
// arcanum.toml) and fills in the project-level paths. ProjectPath stays
// empty when no manifest is found; callers treat that as "not initialized".
func InitProjectSettings() error {
	projectPath, err := utils.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("error getting project root: %w", err)
	}
	return initProjectSettingsAt(projectPath)
}

// InitProjectSettingsFrom is InitProjectSettings starting from an explicit
// directory instead of the working directory.
func InitProjectSettingsFrom(dir string) error {
	projectPath, err := utils.FindProjectRootFrom(dir)
	if err != nil {
		return fmt.Errorf("error getting project root: %w", err)
	}
	return initProjectSettingsAt(projectPath)
}

func initProjectSettingsAt(projectPath string) error {
	if projectPath == "" {
		ProjectArcanumSettings = &ProjectSettings{}
		return nil
	}

	ProjectArcanumSettings = &ProjectSettings{
		ProjectName:  filepath.Base(projectPath),
		ProjectPath:  projectPath,
		ManifestPath: filepath.Join(projectPath, utils.ManifestName),
		AuditLogPath: filepath.Join(projectPath, ".arcanum", "audit.jsonl"),
	}
	return nil
}

// CacheFilePath returns the path of the derived cache for a project root.
// The file name embeds a short hash of the root so distinct checkouts never
// share a cache.
func CacheFilePath(projectRoot string) string {
	sum := sha256.Sum256([]byte(projectRoot))
	short := hex.EncodeToString(sum[:])[:8]
	return filepath.Join(UserArcanumSettings.UserCachePath, fmt.Sprintf("arcanum-%s.json", short))
}
