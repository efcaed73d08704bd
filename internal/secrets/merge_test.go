package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arcanum-sh/arcanum/internal/editor"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		ours      string
		theirs    string
		want      string
		wantClean bool
	}{
		{
			name:      "no changes",
			base:      "a\nb\nc\n",
			ours:      "a\nb\nc\n",
			theirs:    "a\nb\nc\n",
			want:      "a\nb\nc\n",
			wantClean: true,
		},
		{
			name:      "only ours changed",
			base:      "a\nb\nc\n",
			ours:      "a\nB\nc\n",
			theirs:    "a\nb\nc\n",
			want:      "a\nB\nc\n",
			wantClean: true,
		},
		{
			name:      "only theirs changed",
			base:      "a\nb\nc\n",
			ours:      "a\nb\nc\n",
			theirs:    "a\nb\nC\n",
			want:      "a\nb\nC\n",
			wantClean: true,
		},
		{
			name:      "non-overlapping changes combine",
			base:      "a\nb\nc\n",
			ours:      "a\nB\nc\n",
			theirs:    "a\nb\nC\n",
			want:      "a\nB\nC\n",
			wantClean: true,
		},
		{
			name:      "identical changes collapse",
			base:      "a\nb\nc\n",
			ours:      "a\nX\nc\n",
			theirs:    "a\nX\nc\n",
			want:      "a\nX\nc\n",
			wantClean: true,
		},
		{
			name:      "disjoint additions",
			base:      "m\n",
			ours:      "start\nm\n",
			theirs:    "m\nend\n",
			want:      "start\nm\nend\n",
			wantClean: true,
		},
		{
			name:      "overlapping changes conflict",
			base:      "x\n",
			ours:      "y\n",
			theirs:    "z\n",
			wantClean: false,
		},
		{
			name:      "deletion against edit conflicts",
			base:      "keep\nme\n",
			ours:      "keep\n",
			theirs:    "keep\nme now\n",
			wantClean: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clean := Merge(tt.base, tt.ours, tt.theirs)
			if clean != tt.wantClean {
				t.Fatalf("clean = %v, want %v (output:\n%s)", clean, tt.wantClean, got)
			}
			if tt.wantClean && got != tt.want {
				t.Errorf("merged output:\n%s\nwant:\n%s", got, tt.want)
			}
			if !tt.wantClean {
				if !HasConflictMarkers(got) {
					t.Errorf("conflicting merge must carry markers, got:\n%s", got)
				}
				if !strings.Contains(got, "||||||| base\n") {
					t.Errorf("conflict must show the base version, got:\n%s", got)
				}
			}
		})
	}
}

func TestMergeConflictShowsBothSides(t *testing.T) {
	got, clean := Merge("x\n", "y\n", "z\n")
	if clean {
		t.Fatal("expected a conflict")
	}
	for _, want := range []string{"y\n", "z\n", "x\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("conflict block missing %q:\n%s", want, got)
		}
	}
}

func TestTwoSidedConflict(t *testing.T) {
	got := TwoSidedConflict("left\n", "right\n")
	if !HasConflictMarkers(got) {
		t.Fatal("expected markers")
	}
	if strings.Contains(got, "||||||| base") {
		t.Error("a two-sided conflict has no base section")
	}
	if !strings.Contains(got, "left\n") || !strings.Contains(got, "right\n") {
		t.Errorf("both sides must be present:\n%s", got)
	}
}

func TestHasConflictMarkers(t *testing.T) {
	if HasConflictMarkers("plain content\n") {
		t.Error("plain content has no markers")
	}
	if !HasConflictMarkers("<<<<<<< ours\na\n=======\nb\n>>>>>>> theirs\n") {
		t.Error("marker detection failed")
	}
}

func writeMergeBlob(t *testing.T, dir, name, content string, recipients *RecipientSet) string {
	t.Helper()
	blob, err := Encrypt([]byte(content), recipients)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestMergeSessionClean(t *testing.T) {
	identity, recipients := newTestKey(t)
	dir := t.TempDir()

	session := &MergeSession{
		BasePath:   writeMergeBlob(t, dir, "base.age", "a\nb\nc\n", recipients),
		OursPath:   writeMergeBlob(t, dir, "ours.age", "a\nB\nc\n", recipients),
		TheirsPath: writeMergeBlob(t, dir, "theirs.age", "a\nb\nC\n", recipients),
		OutputPath: filepath.Join(dir, "merged.age"),
		Recipients: recipients,
		Identities: []*Identity{identity},
	}

	outcome, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !outcome.Clean {
		t.Error("expected a clean merge")
	}

	blob, err := os.ReadFile(session.OutputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	got, err := Decrypt(blob, identity)
	if err != nil {
		t.Fatalf("decrypting output: %v", err)
	}
	if string(got) != "a\nB\nC\n" {
		t.Errorf("merged plaintext = %q, want %q", got, "a\nB\nC\n")
	}
}

func TestMergeSessionRefusesEmptyCleanResult(t *testing.T) {
	identity, recipients := newTestKey(t)
	dir := t.TempDir()

	// One side deleted everything; the merge is clean and empty.
	session := &MergeSession{
		BasePath:   writeMergeBlob(t, dir, "base.age", "a\n", recipients),
		OursPath:   writeMergeBlob(t, dir, "ours.age", "", recipients),
		TheirsPath: writeMergeBlob(t, dir, "theirs.age", "a\n", recipients),
		OutputPath: filepath.Join(dir, "merged.age"),
		Recipients: recipients,
		Identities: []*Identity{identity},
	}

	_, err := session.Run(context.Background())
	if !errors.Is(err, kerrors.ErrPlaintextEmpty) {
		t.Fatalf("expected ErrPlaintextEmpty, got %v", err)
	}
	if _, err := os.Stat(session.OutputPath); !os.IsNotExist(err) {
		t.Error("no output may be written for an empty merge result")
	}
}

func TestMergeSessionConflictResolvedByEditor(t *testing.T) {
	identity, recipients := newTestKey(t)
	dir := t.TempDir()

	resolve := editor.Func(func(ctx context.Context, path string) error {
		return os.WriteFile(path, []byte("resolved\n"), 0600)
	})

	session := &MergeSession{
		BasePath:   writeMergeBlob(t, dir, "base.age", "x\n", recipients),
		OursPath:   writeMergeBlob(t, dir, "ours.age", "y\n", recipients),
		TheirsPath: writeMergeBlob(t, dir, "theirs.age", "z\n", recipients),
		Recipients: recipients,
		Identities: []*Identity{identity},
		Editor:     resolve,
	}

	outcome, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if outcome.Clean {
		t.Error("expected a conflicting merge")
	}

	// The resolution overwrites ours in place, as a git merge driver expects.
	blob, err := os.ReadFile(session.OursPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	got, err := Decrypt(blob, identity)
	if err != nil {
		t.Fatalf("decrypting output: %v", err)
	}
	if string(got) != "resolved\n" {
		t.Errorf("resolved plaintext = %q", got)
	}
}

func TestMergeSessionRejectsUnresolvedMarkers(t *testing.T) {
	identity, recipients := newTestKey(t)
	dir := t.TempDir()

	// An editor that saves without touching the markers.
	noop := editor.Func(func(ctx context.Context, path string) error { return nil })

	session := &MergeSession{
		BasePath:   writeMergeBlob(t, dir, "base.age", "x\n", recipients),
		OursPath:   writeMergeBlob(t, dir, "ours.age", "y\n", recipients),
		TheirsPath: writeMergeBlob(t, dir, "theirs.age", "z\n", recipients),
		Recipients: recipients,
		Identities: []*Identity{identity},
		Editor:     noop,
	}

	if _, err := session.Run(context.Background()); err == nil {
		t.Fatal("unresolved markers must fail the merge")
	}
}

func TestMergeSessionMissingBase(t *testing.T) {
	identity, recipients := newTestKey(t)
	dir := t.TempDir()

	session := &MergeSession{
		BasePath:   filepath.Join(dir, "does-not-exist.age"),
		OursPath:   writeMergeBlob(t, dir, "ours.age", "y\n", recipients),
		TheirsPath: writeMergeBlob(t, dir, "theirs.age", "z\n", recipients),
		Recipients: recipients,
		Identities: []*Identity{identity},
	}

	_, err := session.Run(context.Background())
	if !errors.Is(err, kerrors.ErrMergeBaseUnavailable) {
		t.Fatalf("expected ErrMergeBaseUnavailable without an editor, got %v", err)
	}

	session.Editor = editor.Func(func(ctx context.Context, path string) error {
		return os.WriteFile(path, []byte("picked ours\n"), 0600)
	})
	outcome, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !outcome.BaseMissing {
		t.Error("expected BaseMissing to be reported")
	}
}
