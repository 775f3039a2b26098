// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	platformerrors "github.com/jmgilman/go/errors"
)

// minAbbreviation is the shortest hash prefix accepted, matching git.
const minAbbreviation = 4

// hashHexSize is the length of a full SHA-1 object ID in hex.
const hashHexSize = 40

// maxPeelDepth bounds annotated-tag chains.
const maxPeelDepth = 16

// refParseRules are the reference lookups tried for a revision, in
// git's rev-parse order.
var refParseRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// Resolution is the outcome of resolving a revision.
type Resolution struct {
	// Revision is the specifier that was resolved.
	Revision string

	// Tree is the resolved tree and TreeID its hash.
	Tree   *object.Tree
	TreeID plumbing.Hash

	// CommitID is the commit the tree came from. Zero when the
	// revision named a tree directly.
	CommitID plumbing.Hash

	// Time is the committer time for commits, or the clock's time at
	// resolution for bare trees.
	Time time.Time
}

// HasCommit reports whether the revision resolved through a commit.
func (r *Resolution) HasCommit() bool {
	return !r.CommitID.IsZero()
}

// Resolve resolves rev to a tree. An empty rev means DefaultRevision.
// Annotated tags are peeled; anything that does not end at a commit
// or tree is a resolution error.
func (r *Repository) Resolve(rev string) (*Resolution, error) {
	if rev == "" {
		rev = DefaultRevision
	}

	id, err := r.resolveID(rev)
	if err != nil {
		return nil, err
	}

	resolution, err := r.peel(rev, id)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("revision resolved",
		"revision", rev,
		"tree", resolution.TreeID.String(),
		"commit", resolution.CommitID.String(),
		"time", resolution.Time,
	)
	return resolution, nil
}

// resolveID maps a specifier to an object ID without checking its type.
func (r *Repository) resolveID(rev string) (plumbing.Hash, error) {
	for _, rule := range refParseRules {
		name := plumbing.ReferenceName(fmt.Sprintf(rule, rev))
		reference, err := storer.ResolveReference(r.storer, name)
		if err == nil {
			return reference.Hash(), nil
		}
	}

	if isHex(rev) {
		switch {
		case len(rev) == hashHexSize:
			id := plumbing.NewHash(rev)
			if r.storer.HasEncodedObject(id) == nil {
				return id, nil
			}
		case len(rev) >= minAbbreviation && len(rev) < hashHexSize:
			candidates, err := r.expandAbbreviation(rev)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			if len(candidates) == 1 {
				return candidates[0], nil
			}
			if len(candidates) > 1 {
				return plumbing.ZeroHash, platformerrors.Newf(CodeResolution,
					"revision %q is ambiguous: %d objects share the prefix", rev, len(candidates))
			}
		}
	}

	// Revision expressions (HEAD~2, main^) always land on a commit.
	if r.repo != nil {
		id, err := r.repo.ResolveRevision(plumbing.Revision(rev))
		if err == nil {
			return *id, nil
		}
	}

	return plumbing.ZeroHash, platformerrors.Newf(CodeResolution, "revision %q does not resolve to an object", rev)
}

// hashPrefixer is implemented by go-git storages that index loose and
// packed objects by prefix.
type hashPrefixer interface {
	HashesWithPrefix(prefix []byte) ([]plumbing.Hash, error)
}

// expandAbbreviation returns every object ID starting with prefix.
func (r *Repository) expandAbbreviation(prefix string) ([]plumbing.Hash, error) {
	prefix = strings.ToLower(prefix)

	var candidates []plumbing.Hash
	if indexed, ok := r.storer.(hashPrefixer); ok {
		// Only whole bytes can be decoded; odd-length prefixes are
		// narrowed by the string comparison below.
		evenPrefix, err := hex.DecodeString(prefix[:len(prefix)&^1])
		if err != nil {
			return nil, platformerrors.Wrapf(err, CodeResolution, "decoding hash prefix %q", prefix)
		}
		candidates, err = indexed.HashesWithPrefix(evenPrefix)
		if err != nil {
			return nil, platformerrors.Wrapf(err, CodeIO, "expanding hash prefix %q", prefix)
		}
	} else {
		iter, err := r.storer.IterEncodedObjects(plumbing.AnyObject)
		if err != nil {
			return nil, platformerrors.Wrapf(err, CodeIO, "listing objects")
		}
		defer iter.Close()
		for {
			encoded, err := iter.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, platformerrors.Wrapf(err, CodeIO, "listing objects")
			}
			candidates = append(candidates, encoded.Hash())
		}
	}

	seen := make(map[plumbing.Hash]bool)
	var matches []plumbing.Hash
	for _, candidate := range candidates {
		if seen[candidate] || !strings.HasPrefix(candidate.String(), prefix) {
			continue
		}
		seen[candidate] = true
		matches = append(matches, candidate)
	}
	return matches, nil
}

// peel follows annotated tags from id until it reaches a commit or a
// tree.
func (r *Repository) peel(rev string, id plumbing.Hash) (*Resolution, error) {
	current, err := object.GetObject(r.storer, id)
	if err != nil {
		return nil, platformerrors.Wrapf(err, CodeResolution, "revision %q names missing object %s", rev, id)
	}

	for depth := 0; depth < maxPeelDepth; depth++ {
		switch typed := current.(type) {
		case *object.Tag:
			current, err = typed.Object()
			if err != nil {
				return nil, platformerrors.Wrapf(err, CodeResolution, "peeling tag %s", typed.Hash)
			}
		case *object.Commit:
			tree, err := typed.Tree()
			if err != nil {
				return nil, platformerrors.Wrapf(err, CodeIO, "loading tree of commit %s", typed.Hash)
			}
			return &Resolution{
				Revision: rev,
				Tree:     tree,
				TreeID:   tree.Hash,
				CommitID: typed.Hash,
				Time:     typed.Committer.When,
			}, nil
		case *object.Tree:
			return &Resolution{
				Revision: rev,
				Tree:     typed,
				TreeID:   typed.Hash,
				Time:     r.clock.Now(),
			}, nil
		default:
			return nil, platformerrors.Newf(CodeResolution,
				"revision %q resolves to a %s, not a commit or tree", rev, current.Type())
		}
	}
	return nil, platformerrors.Newf(CodeResolution, "revision %q: tag chain deeper than %d", rev, maxPeelDepth)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
