package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"

	"github.com/arcanum-sh/arcanum/internal/configs"
	"github.com/arcanum-sh/arcanum/internal/editor"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// setupProject creates a project with one managed file and switches the
// working directory into it. Returns the project root and the path of an
// identity file whose public key is the file's only recipient.
func setupProject(t *testing.T) (string, string) {
	t.Helper()

	key, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}

	root := t.TempDir()
	keyPath := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(keyPath, []byte(key.String()+"\n"), 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}

	manifest := &configs.Manifest{
		Files: map[string]configs.FileSpec{
			"app": {
				Source:     "secrets/app.env.age",
				Dest:       ".env",
				Recipients: []string{key.Recipient().String()},
			},
		},
	}
	if err := configs.SaveTOML(filepath.Join(root, "arcanum.toml"), manifest); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	// Keep the derived cache inside the test sandbox.
	originalCache := configs.UserArcanumSettings.UserCachePath
	configs.UserArcanumSettings.UserCachePath = t.TempDir()
	t.Cleanup(func() { configs.UserArcanumSettings.UserCachePath = originalCache })

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return root, keyPath
}

func TestEncryptDecryptLifecycle(t *testing.T) {
	root, keyPath := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}

	encResult, err := Encrypt(ctx, EncryptOptions{
		Input:  plaintextPath,
		Output: "secrets/app.env.age",
	})
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if encResult.Recipients != 1 {
		t.Errorf("expected 1 recipient, got %d", encResult.Recipients)
	}

	decResult, err := Decrypt(ctx, DecryptOptions{
		Input:        "secrets/app.env.age",
		Output:       "-",
		IdentityRefs: []string{keyPath},
	})
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(decResult.Plaintext) != "KEY=value\n" {
		t.Errorf("plaintext = %q, want %q", decResult.Plaintext, "KEY=value\n")
	}
}

func TestEncryptUnmanagedTarget(t *testing.T) {
	root, _ := setupProject(t)

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}

	_, err := Encrypt(context.Background(), EncryptOptions{
		Input:  plaintextPath,
		Output: "secrets/other.age",
	})
	if !errors.Is(err, kerrors.ErrFileNotManaged) {
		t.Fatalf("expected ErrFileNotManaged, got %v", err)
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	root, _ := setupProject(t)

	plaintextPath := filepath.Join(root, "empty.env")
	if err := os.WriteFile(plaintextPath, nil, 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}

	_, err := Encrypt(context.Background(), EncryptOptions{
		Input:  plaintextPath,
		Output: "secrets/app.env.age",
	})
	if !errors.Is(err, kerrors.ErrPlaintextEmpty) {
		t.Fatalf("expected ErrPlaintextEmpty, got %v", err)
	}
}

func TestStatusAfterEncryptAndDrift(t *testing.T) {
	root, _ := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}
	if _, err := Encrypt(ctx, EncryptOptions{Input: plaintextPath, Output: "secrets/app.env.age"}); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	result, err := Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(result.Files))
	}
	if result.Files[0].Status != secrets.StatusUpToDate {
		t.Errorf("expected up to date, got %v", result.Files[0].Status)
	}

	// Changing the recipient set must flip the status without any decryption.
	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}
	manifest, err := configs.LoadManifest()
	if err != nil {
		t.Fatalf("load manifest failed: %v", err)
	}
	spec := manifest.Files["app"]
	spec.Recipients = append(spec.Recipients, other.Recipient().String())
	manifest.Files["app"] = spec
	if err := configs.SaveManifest(manifest); err != nil {
		t.Fatalf("save manifest failed: %v", err)
	}

	result, err = Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.Files[0].Status != secrets.StatusNeedsRekey {
		t.Errorf("expected needs rekey after recipient change, got %v", result.Files[0].Status)
	}
	if len(result.NeedsAttention()) != 1 {
		t.Errorf("expected 1 file needing attention")
	}

	// Querying the stale file directly surfaces ErrCacheStale for scripting.
	result, err = Status(ctx, StatusOptions{Path: "secrets/app.env.age"})
	if !errors.Is(err, kerrors.ErrCacheStale) {
		t.Errorf("expected ErrCacheStale for a single-file query, got %v", err)
	}
	if result == nil || len(result.Files) != 1 {
		t.Error("the report must accompany the stale error")
	}
}

func TestRekeyBringsStatusCurrent(t *testing.T) {
	root, keyPath := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}
	if _, err := Encrypt(ctx, EncryptOptions{Input: plaintextPath, Output: "secrets/app.env.age"}); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}
	manifest, err := configs.LoadManifest()
	if err != nil {
		t.Fatalf("load manifest failed: %v", err)
	}
	spec := manifest.Files["app"]
	spec.Recipients = append(spec.Recipients, other.Recipient().String())
	manifest.Files["app"] = spec
	if err := configs.SaveManifest(manifest); err != nil {
		t.Fatalf("save manifest failed: %v", err)
	}

	rekeyResult, err := Rekey(ctx, RekeyOptions{All: true, IdentityRefs: []string{keyPath}})
	if err != nil {
		t.Fatalf("rekey failed: %v", err)
	}
	if len(rekeyResult.Failed()) != 0 {
		t.Fatalf("rekey reported failures: %v", rekeyResult.Failed())
	}

	statusResult, err := Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if statusResult.Files[0].Status != secrets.StatusUpToDate {
		t.Errorf("expected up to date after rekey, got %v", statusResult.Files[0].Status)
	}
	if statusResult.Files[0].Recipients != 2 {
		t.Errorf("expected 2 recipients, got %d", statusResult.Files[0].Recipients)
	}
}

func TestCacheRebuildRestoresIndex(t *testing.T) {
	root, _ := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}
	if _, err := Encrypt(ctx, EncryptOptions{Input: plaintextPath, Output: "secrets/app.env.age"}); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	// Destroy the cache file, then rebuild it from ciphertext and manifest.
	if err := os.Remove(configs.CacheFilePath(root)); err != nil {
		t.Fatalf("failed to remove cache: %v", err)
	}

	rebuildResult, err := CacheRebuild(ctx, CacheRebuildOptions{})
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if rebuildResult.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", rebuildResult.Entries)
	}

	statusResult, err := Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if statusResult.Files[0].Status != secrets.StatusUpToDate {
		t.Errorf("expected up to date after rebuild, got %v", statusResult.Files[0].Status)
	}
}

func TestEditLifecycle(t *testing.T) {
	root, keyPath := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=old\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}
	if _, err := Encrypt(ctx, EncryptOptions{Input: plaintextPath, Output: "secrets/app.env.age"}); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	editResult, err := Edit(ctx, EditOptions{
		Path:         "secrets/app.env.age",
		IdentityRefs: []string{keyPath},
		Editor: editor.Func(func(ctx context.Context, p string) error {
			return os.WriteFile(p, []byte("KEY=new\n"), 0600)
		}),
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !editResult.Changed {
		t.Error("expected the edit to report a change")
	}

	decResult, err := Decrypt(ctx, DecryptOptions{
		Input:        "secrets/app.env.age",
		Output:       "-",
		IdentityRefs: []string{keyPath},
	})
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(decResult.Plaintext) != "KEY=new\n" {
		t.Errorf("plaintext = %q, want %q", decResult.Plaintext, "KEY=new\n")
	}

	statusResult, err := Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if statusResult.Files[0].Status != secrets.StatusUpToDate {
		t.Errorf("expected up to date after edit, got %v", statusResult.Files[0].Status)
	}
}

func TestBatchOpsIsolateBrokenRecipientConfig(t *testing.T) {
	root, keyPath := setupProject(t)
	ctx := context.Background()

	plaintextPath := filepath.Join(root, "app.env")
	if err := os.WriteFile(plaintextPath, []byte("KEY=value\n"), 0600); err != nil {
		t.Fatalf("failed to write plaintext: %v", err)
	}
	if _, err := Encrypt(ctx, EncryptOptions{Input: plaintextPath, Output: "secrets/app.env.age"}); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(root, "secrets", "app.env.age"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// Add an entry whose recipient list cannot be parsed.
	manifest, err := configs.LoadManifest()
	if err != nil {
		t.Fatalf("load manifest failed: %v", err)
	}
	manifest.Files["broken"] = configs.FileSpec{
		Source:     "secrets/broken.age",
		Recipients: []string{"not-a-key!!"},
	}
	if err := configs.SaveManifest(manifest); err != nil {
		t.Fatalf("save manifest failed: %v", err)
	}

	// Rekey: the broken entry fails alone; the good file is still rekeyed.
	rekeyResult, err := Rekey(ctx, RekeyOptions{All: true, IdentityRefs: []string{keyPath}})
	if !errors.Is(err, kerrors.ErrPartialBatchFailure) {
		t.Fatalf("expected ErrPartialBatchFailure, got %v", err)
	}
	if len(rekeyResult.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rekeyResult.Results))
	}
	failed := rekeyResult.Failed()
	if len(failed) != 1 {
		t.Fatalf("expected exactly 1 failure, got %d", len(failed))
	}
	if !errors.Is(failed[0].Err, kerrors.ErrRecipientParse) {
		t.Errorf("expected ErrRecipientParse for the broken entry, got %v", failed[0].Err)
	}
	after, err := os.ReadFile(filepath.Join(root, "secrets", "app.env.age"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(before) == string(after) {
		t.Error("the good file must still be rekeyed")
	}

	// Cache rebuild: the good file is indexed despite the broken entry.
	rebuildResult, err := CacheRebuild(ctx, CacheRebuildOptions{})
	if !errors.Is(err, kerrors.ErrPartialBatchFailure) {
		t.Fatalf("expected ErrPartialBatchFailure, got %v", err)
	}
	if rebuildResult.Entries != 1 {
		t.Errorf("expected 1 indexed entry, got %d", rebuildResult.Entries)
	}

	// Status: the full report covers both entries instead of aborting.
	statusResult, err := Status(ctx, StatusOptions{})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if len(statusResult.Files) != 2 {
		t.Fatalf("expected 2 files in the report, got %d", len(statusResult.Files))
	}
	var sawBroken, sawGood bool
	for _, f := range statusResult.Files {
		switch f.Source {
		case "secrets/broken.age":
			sawBroken = true
			if !errors.Is(f.Err, kerrors.ErrRecipientParse) {
				t.Errorf("broken entry should carry its parse error, got %v", f.Err)
			}
		case "secrets/app.env.age":
			sawGood = true
			if f.Err != nil {
				t.Errorf("good entry should verify, got %v", f.Err)
			}
			if f.Status != secrets.StatusUpToDate {
				t.Errorf("good entry should be up to date, got %v", f.Status)
			}
		}
	}
	if !sawBroken || !sawGood {
		t.Error("report must include both the good and the broken entry")
	}
	if len(statusResult.NeedsAttention()) != 1 {
		t.Errorf("expected 1 file needing attention")
	}
}

func TestInitAndReinit(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	result, err := Init(ctx, InitOptions{Dir: dir, AdminRecipients: []string{"age1admin"}})
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(result.ManifestPath); err != nil {
		t.Errorf("manifest not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".arcanum")); err != nil {
		t.Errorf(".arcanum directory not created: %v", err)
	}

	_, err = Init(ctx, InitOptions{Dir: dir})
	if !errors.Is(err, kerrors.ErrProjectAlreadyInitialized) {
		t.Fatalf("expected ErrProjectAlreadyInitialized, got %v", err)
	}

	if _, err := Init(ctx, InitOptions{Dir: dir, Force: true}); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
}
