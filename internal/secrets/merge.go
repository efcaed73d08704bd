package secrets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/arcanum-sh/arcanum/internal/editor"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// Conflict markers written into working copies for manual resolution.
// They appear only in decrypted plaintext, never in stored ciphertext.
const (
	markerOurs   = "<<<<<<< ours\n"
	markerBase   = "||||||| base\n"
	markerSep    = "=======\n"
	markerTheirs = ">>>>>>> theirs\n"
)

// hunk is one contiguous change against the base: base[start:end) is
// replaced by lines. A pure insertion has start == end.
type hunk struct {
	start, end int
	lines      []string
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineDiffs computes a line-level diff using diffmatchpatch's line mode.
func lineDiffs(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lineArray)
}

// hunksAgainstBase converts a pairwise diff into base-anchored hunks,
// coalescing adjacent deletions and insertions into single replacements.
func hunksAgainstBase(base, side string) []hunk {
	var hunks []hunk
	var pending *hunk
	baseIdx := 0

	flush := func() {
		if pending != nil {
			hunks = append(hunks, *pending)
			pending = nil
		}
	}

	for _, d := range lineDiffs(base, side) {
		n := len(splitLines(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			baseIdx += n
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &hunk{start: baseIdx, end: baseIdx}
			}
			pending.end += n
			baseIdx += n
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &hunk{start: baseIdx, end: baseIdx}
			}
			pending.lines = append(pending.lines, splitLines(d.Text)...)
		}
	}
	flush()
	return hunks
}

// overlapsRegion reports whether a hunk's base range intersects [s, e).
// Insertions (zero-length ranges) collide when they land strictly inside
// the region, or on the same point as another insertion.
func overlapsRegion(h hunk, s, e int) bool {
	if h.start == h.end {
		if s == e {
			return h.start == s
		}
		return s <= h.start && h.start < e
	}
	if s == e {
		return h.start <= s && s < h.end
	}
	return h.start < e && s < h.end
}

// renderRegion applies a side's hunks to base[s:e).
func renderRegion(baseLines []string, s, e int, hunks []hunk) string {
	var b strings.Builder
	pos := s
	for _, h := range hunks {
		for _, line := range baseLines[pos:h.start] {
			b.WriteString(line)
		}
		for _, line := range h.lines {
			b.WriteString(line)
		}
		pos = h.end
	}
	for _, line := range baseLines[pos:e] {
		b.WriteString(line)
	}
	return b.String()
}

func withTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// Merge performs a textual three-way merge of ours and theirs against base.
// Non-overlapping changes from both sides are combined; overlapping changes
// that agree collapse to one; disagreements produce diff3-style conflict
// markers. The second return value is true when the merge was clean.
func Merge(base, ours, theirs string) (string, bool) {
	baseLines := splitLines(base)
	oursHunks := hunksAgainstBase(base, ours)
	theirsHunks := hunksAgainstBase(base, theirs)

	var out strings.Builder
	clean := true
	copied := 0
	oi, ti := 0, 0

	emitBase := func(to int) {
		for _, line := range baseLines[copied:to] {
			out.WriteString(line)
		}
		copied = to
	}

	for oi < len(oursHunks) || ti < len(theirsHunks) {
		// Seed a region with the earliest remaining hunk, then absorb hunks
		// from either side while they overlap it. The result is a maximal
		// group of mutually conflicting changes.
		var groupOurs, groupTheirs []hunk
		var s, e int
		if oi < len(oursHunks) && (ti >= len(theirsHunks) || oursHunks[oi].start <= theirsHunks[ti].start) {
			s, e = oursHunks[oi].start, oursHunks[oi].end
			groupOurs = append(groupOurs, oursHunks[oi])
			oi++
		} else {
			s, e = theirsHunks[ti].start, theirsHunks[ti].end
			groupTheirs = append(groupTheirs, theirsHunks[ti])
			ti++
		}
		for {
			grew := false
			if oi < len(oursHunks) && overlapsRegion(oursHunks[oi], s, e) {
				if oursHunks[oi].end > e {
					e = oursHunks[oi].end
				}
				groupOurs = append(groupOurs, oursHunks[oi])
				oi++
				grew = true
			}
			if ti < len(theirsHunks) && overlapsRegion(theirsHunks[ti], s, e) {
				if theirsHunks[ti].end > e {
					e = theirsHunks[ti].end
				}
				groupTheirs = append(groupTheirs, theirsHunks[ti])
				ti++
				grew = true
			}
			if !grew {
				break
			}
		}

		emitBase(s)
		oursText := renderRegion(baseLines, s, e, groupOurs)
		theirsText := renderRegion(baseLines, s, e, groupTheirs)

		switch {
		case len(groupTheirs) == 0 || oursText == theirsText:
			out.WriteString(oursText)
		case len(groupOurs) == 0:
			out.WriteString(theirsText)
		default:
			clean = false
			out.WriteString(markerOurs)
			out.WriteString(withTrailingNewline(oursText))
			out.WriteString(markerBase)
			out.WriteString(withTrailingNewline(renderRegion(baseLines, s, e, nil)))
			out.WriteString(markerSep)
			out.WriteString(withTrailingNewline(theirsText))
			out.WriteString(markerTheirs)
		}
		copied = e
	}
	emitBase(len(baseLines))
	return out.String(), clean
}

// TwoSidedConflict presents both sides for manual resolution when no common
// base exists. Guessing a winner is never acceptable.
func TwoSidedConflict(ours, theirs string) string {
	var b strings.Builder
	b.WriteString(markerOurs)
	b.WriteString(withTrailingNewline(ours))
	b.WriteString(markerSep)
	b.WriteString(withTrailingNewline(theirs))
	b.WriteString(markerTheirs)
	return b.String()
}

// HasConflictMarkers reports whether text still carries unresolved markers.
func HasConflictMarkers(text string) bool {
	return strings.Contains(text, "<<<<<<<") || strings.Contains(text, ">>>>>>>")
}

// MergeSession resolves a version-control conflict between three versions
// of one encrypted file. Base, ours and theirs paths are supplied by the
// VCS collaborator (a git merge driver passes %O %A %B).
type MergeSession struct {
	BasePath   string
	OursPath   string
	TheirsPath string

	// OutputPath receives the merged ciphertext; defaults to OursPath.
	OutputPath string

	// CacheKey is the cache index path for the merged file. Empty disables
	// cache updates.
	CacheKey string

	Recipients *RecipientSet
	Identities []*Identity
	Editor     editor.Editor
	Cache      *CacheStore
}

// MergeOutcome reports how the conflict was resolved.
type MergeOutcome struct {
	// Clean is true when the textual merge had no overlapping changes and
	// no manual resolution was needed.
	Clean bool

	// BaseMissing is true when no common base blob existed and both sides
	// were presented for manual resolution.
	BaseMissing bool
}

// Run decrypts the three versions, merges their plaintexts, and writes the
// re-encrypted result. Conflicting merges go through the external edit step
// with the same scoped-plaintext lifecycle as an edit session.
//
// Returns ErrMergeBaseUnavailable if the base is missing and no editor is
// available for manual resolution.
func (s *MergeSession) Run(ctx context.Context) (*MergeOutcome, error) {
	output := s.OutputPath
	if output == "" {
		output = s.OursPath
	}

	ours, err := s.decryptSide(s.OursPath)
	if err != nil {
		return nil, fmt.Errorf("ours: %w", err)
	}
	theirs, err := s.decryptSide(s.TheirsPath)
	if err != nil {
		return nil, fmt.Errorf("theirs: %w", err)
	}

	outcome := &MergeOutcome{}
	var merged string

	baseBlob, err := os.ReadFile(s.BasePath)
	if err != nil || len(bytes.TrimSpace(baseBlob)) == 0 {
		if s.Editor == nil {
			return nil, kerrors.ErrMergeBaseUnavailable
		}
		outcome.BaseMissing = true
		merged = TwoSidedConflict(string(ours), string(theirs))
	} else {
		base, err := Decrypt(baseBlob, s.Identities...)
		if err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		var clean bool
		merged, clean = Merge(string(base), string(ours), string(theirs))
		if clean {
			outcome.Clean = true
			return outcome, s.commit(output, []byte(merged))
		}
	}

	if s.Editor == nil {
		return nil, fmt.Errorf("merge of %s has conflicts and no editor is available", output)
	}

	scoped, err := NewScopedPlaintext([]byte(merged), output)
	if err != nil {
		return nil, err
	}
	defer scoped.Remove()

	if err := s.Editor.Edit(ctx, scoped.Path()); err != nil {
		return nil, fmt.Errorf("edit step failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, err := scoped.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read resolved plaintext: %w", err)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: refusing to write resolution", kerrors.ErrPlaintextEmpty)
	}
	if HasConflictMarkers(string(resolved)) {
		return nil, fmt.Errorf("resolved content still contains conflict markers")
	}

	return outcome, s.commit(output, resolved)
}

func (s *MergeSession) decryptSide(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
	}
	return Decrypt(blob, s.Identities...)
}

func (s *MergeSession) commit(output string, plaintext []byte) error {
	// A one-sided deletion of every line merges clean to empty plaintext.
	if len(plaintext) == 0 {
		return fmt.Errorf("%w: refusing to write %s", kerrors.ErrPlaintextEmpty, output)
	}
	blob, err := Encrypt(plaintext, s.Recipients)
	if err != nil {
		return err
	}
	if err := verifyBlob(blob, plaintext, s.Recipients, s.Identities); err != nil {
		return err
	}
	if err := WriteFileAtomic(output, blob, 0644); err != nil {
		return err
	}
	if s.Cache != nil && s.CacheKey != "" {
		s.Cache.Update(s.CacheKey, blob, s.Recipients)
	}
	return nil
}
