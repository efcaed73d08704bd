package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectRootFrom(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte(""), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	nested := filepath.Join(root, "secrets", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dirs: %v", err)
	}

	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"at the root itself", root, root},
		{"from a nested directory", nested, root},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindProjectRootFrom(tt.start)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindProjectRootFromNoManifest(t *testing.T) {
	got, err := FindProjectRootFrom(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty root, got %q", got)
	}
}
