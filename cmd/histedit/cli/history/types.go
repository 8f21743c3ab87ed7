// Package history rewrites the metadata of a single commit inside a branch
// and re-derives every descendant so the branch stays a hash-linked chain.
//
// The package owns the data model, the ancestry walker, the rewrite engine,
// the backup manager and the read-only query service. Objects and references
// are reached through the narrow Store interface; gitstore provides the go-git
// implementation.
//
// Usage:
//
//	store, err := gitstore.Open(path)
//	rw := history.NewRewriter(store, history.RewriterOptions{Progress: fn})
//	outcome, err := rw.Rewrite(ctx, target, history.Overrides{Message: &msg})
package history

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Signature identifies who authored or committed a change, and when.
type Signature struct {
	Name          string
	Email         string
	When          int64 // seconds since the unix epoch
	OffsetMinutes int   // UTC offset of the recorded time zone
}

// SignatureFromObject converts a go-git signature, keeping its original zone offset.
func SignatureFromObject(sig object.Signature) Signature {
	_, offset := sig.When.Zone()
	return Signature{
		Name:          sig.Name,
		Email:         sig.Email,
		When:          sig.When.Unix(),
		OffsetMinutes: offset / 60,
	}
}

// Object converts the signature back into a go-git signature. The time is
// placed in a fixed zone so it encodes with the same offset it was read with.
func (s Signature) Object() object.Signature {
	zone := time.FixedZone("", s.OffsetMinutes*60)
	return object.Signature{
		Name:  s.Name,
		Email: s.Email,
		When:  time.Unix(s.When, 0).In(zone),
	}
}

// Time returns the signature time in its recorded zone.
func (s Signature) Time() time.Time {
	return time.Unix(s.When, 0).In(time.FixedZone("", s.OffsetMinutes*60))
}

// Commit is an immutable commit record. Parents are held by id, never by pointer.
type Commit struct {
	ID        plumbing.Hash
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool { return len(c.Parents) == 0 }

// Subject returns the first line of the commit message.
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimRight(subject, "\r")
}

// CommitSpec is everything needed to create a new commit object.
type CommitSpec struct {
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
}

// Head describes what HEAD currently points at.
type Head struct {
	// Ref is the branch HEAD points to, or plumbing.HEAD when detached.
	Ref plumbing.ReferenceName
	// Tip is the commit HEAD resolves to. Zero when Unborn.
	Tip plumbing.Hash
	// Detached is true when HEAD holds a commit id rather than a branch name.
	Detached bool
	// Unborn is true when HEAD names a branch that has no commits yet.
	Unborn bool
}

// Branch returns the short branch name, or "" when detached.
func (h Head) Branch() string {
	if h.Detached || !h.Ref.IsBranch() {
		return ""
	}
	return h.Ref.Short()
}

// Reference is a named pointer to an object id.
type Reference struct {
	Name plumbing.ReferenceName
	Hash plumbing.Hash
}

// RefUpdate describes a reference write. When Old is non-zero the write is a
// compare-and-swap that fails with *ConcurrentModificationError if the
// reference does not currently point at Old.
//
// For a reference stored only in packed-refs the comparison is a read
// followed by a separate write, so a writer landing between the two is
// overwritten. Loose references are compared under the ref lock.
type RefUpdate struct {
	Name    plumbing.ReferenceName
	New     plumbing.Hash
	Old     plumbing.Hash
	Message string
}

// OidMap maps an original commit id to the id of its rebuilt replacement.
// It is scoped to a single rewrite.
type OidMap map[plumbing.Hash]plumbing.Hash

// Resolve returns the replacement for id, or id itself when it was not rebuilt.
func (m OidMap) Resolve(id plumbing.Hash) plumbing.Hash {
	if replacement, ok := m[id]; ok {
		return replacement
	}
	return id
}

// RewriteOutcome summarises a completed rewrite.
type RewriteOutcome struct {
	Branch           string
	OldTarget        plumbing.Hash
	NewTarget        plumbing.Hash
	OldTip           plumbing.Hash
	NewTip           plumbing.Hash
	CommitsRewritten int
	BackupRef        plumbing.ReferenceName
	Mapping          OidMap
}

// BackupState reports whether a backup exists for a branch.
type BackupState struct {
	Branch     string
	Ref        plumbing.ReferenceName
	Exists     bool
	BackedUpID plumbing.Hash
}
