package secrets

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/arcanum-sh/arcanum/internal/configs"
)

// ParseFileMode parses an octal mode string like "0600".
func ParseFileMode(s string) (os.FileMode, error) {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	return os.FileMode(mode), nil
}

// EnsureDestDir creates the parent directory of a decrypted destination when
// the spec asks for it.
func EnsureDestDir(dest string, spec configs.FileSpec) error {
	if !spec.MakeDirectory {
		return nil
	}
	mode := os.FileMode(0700)
	if spec.DirectoryPermissions != "" {
		parsed, err := ParseFileMode(spec.DirectoryPermissions)
		if err != nil {
			return err
		}
		mode = parsed
	}
	if err := os.MkdirAll(filepath.Dir(dest), mode); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	return nil
}

// ApplyFileSpec applies the spec's permissions and ownership to a decrypted
// output file. Ownership changes require root and are skipped otherwise;
// the decrypted bytes are already on disk either way.
func ApplyFileSpec(dest string, spec configs.FileSpec) error {
	if spec.Permissions != "" {
		mode, err := ParseFileMode(spec.Permissions)
		if err != nil {
			return err
		}
		if err := os.Chmod(dest, mode); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", dest, err)
		}
	}

	if spec.Owner == "" && spec.Group == "" {
		return nil
	}
	if os.Geteuid() != 0 {
		// Only root may reassign ownership.
		return nil
	}

	uid, gid := -1, -1
	if spec.Owner != "" {
		u, err := user.Lookup(spec.Owner)
		if err != nil {
			return fmt.Errorf("unknown owner %q: %w", spec.Owner, err)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return fmt.Errorf("invalid uid for %q: %w", spec.Owner, err)
		}
	}
	if spec.Group != "" {
		g, err := user.LookupGroup(spec.Group)
		if err != nil {
			return fmt.Errorf("unknown group %q: %w", spec.Group, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf("invalid gid for %q: %w", spec.Group, err)
		}
	}

	if err := os.Chown(dest, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %s: %w", dest, err)
	}
	return nil
}
