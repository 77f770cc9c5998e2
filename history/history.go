// Package history computes and classifies the span of newly introduced
// objects for a ref update.
//
// The span of an update is every commit reachable from the new revision but
// not from the old one, in topological old-to-new order. When the old side is
// the zero sentinel (a brand-new ref) the span is the history not reachable
// from any existing branch tip. Classification runs against a cursor that
// advances through the span, so "is this a merge" always means "is there a
// merge commit since the previously classified revision".
package history

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Class identifies what kind of history object a span member is.
type Class int

// Object classifications.
const (
	ClassCommit Class = iota
	ClassMerge
	ClassTag
	ClassLightweightTag
	ClassDeletion
)

// String returns a short human-readable form of the class.
func (c Class) String() string {
	switch c {
	case ClassCommit:
		return "commit"
	case ClassMerge:
		return "merge"
	case ClassTag:
		return "tag"
	case ClassLightweightTag:
		return "lightweight tag"
	case ClassDeletion:
		return "deletion"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Record is one classified history object.
type Record struct {
	Hash        plumbing.Hash
	Class       Class
	FromDevelop bool
	FromRelease bool
}

// Branch name prefixes that mark merge origins acceptable on a protected
// branch.
const (
	developPrefix = "devel"
	releasePrefix = "release"
)

// Classifier answers span and classification queries over a repository's
// commit graph.
type Classifier struct {
	repo   *git.Repository
	logger *slog.Logger
}

// NewClassifier creates a classifier over the given repository.
func NewClassifier(repo *git.Repository, opts ...ClassifierOption) *Classifier {
	c := &Classifier{repo: repo, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseRevision validates a revision string and returns its hash. The
// all-zero sentinel is well-formed; anything that is not 40 hex digits fails
// with ErrMalformedRevision.
func ParseRevision(rev string) (plumbing.Hash, error) {
	if len(rev) != 40 {
		return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrMalformedRevision, rev)
	}
	for _, r := range rev {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrMalformedRevision, rev)
		}
	}
	return plumbing.NewHash(rev), nil
}

// Span returns the history objects the update genuinely introduces: commits
// reachable from new but neither from old nor from any existing branch tip,
// oldest first. Commits already reachable from another branch were evaluated
// when that branch was pushed, so merging them does not re-enter them into
// the span. A zero new revision (ref deletion) yields an empty span.
// Annotated tag revisions are peeled to their target commit on both sides.
func (c *Classifier) Span(oldRev, newRev plumbing.Hash) ([]*object.Commit, error) {
	if newRev.IsZero() {
		return nil, nil
	}

	start, err := c.peel(newRev)
	if err != nil {
		return nil, err
	}

	boundaries, err := c.branchTips()
	if err != nil {
		return nil, err
	}
	if !oldRev.IsZero() {
		old, err := c.peel(oldRev)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, old)
	}

	seen, err := c.reachable(boundaries)
	if err != nil {
		return nil, err
	}

	members := make(map[plumbing.Hash]*object.Commit)
	if err := c.walk(start, seen, func(commit *object.Commit) {
		members[commit.Hash] = commit
	}); err != nil {
		return nil, err
	}

	span := topoSort(members)
	c.logger.Debug("computed span",
		slog.String("old", oldRev.String()),
		slog.String("new", newRev.String()),
		slog.Int("commits", len(span)))
	return span, nil
}

// MergeSince reports whether any commit in the range (cursor, target] is a
// merge commit. A zero cursor bounds the range the same way Span does: only
// history not reachable from an existing branch tip is considered.
func (c *Classifier) MergeSince(cursor, target plumbing.Hash) (bool, error) {
	var boundaries []plumbing.Hash
	if cursor.IsZero() {
		tips, err := c.branchTips()
		if err != nil {
			return false, err
		}
		boundaries = tips
	} else {
		cur, err := c.peel(cursor)
		if err != nil {
			return false, err
		}
		boundaries = []plumbing.Hash{cur}
	}
	seen, err := c.reachable(boundaries)
	if err != nil {
		return false, err
	}

	start, err := c.peel(target)
	if err != nil {
		return false, err
	}

	merge := false
	if err := c.walk(start, seen, func(commit *object.Commit) {
		if commit.NumParents() > 1 {
			merge = true
		}
	}); err != nil {
		return false, err
	}
	return merge, nil
}

// OriginFlags reports whether the commit is contained in a branch whose name
// begins with "devel" or "release". Containment means the commit is
// reachable from the branch tip. This is a deliberate heuristic: a commit
// reachable from several branches is flagged by every one of them.
func (c *Classifier) OriginFlags(hash plumbing.Hash) (fromDevelop, fromRelease bool, err error) {
	refs, err := c.repo.References()
	if err != nil {
		return false, false, fmt.Errorf("history: list references: %w", err)
	}
	defer refs.Close()

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsBranch() {
			return nil
		}
		short := ref.Name().Short()
		isDevel := strings.HasPrefix(short, developPrefix)
		isRelease := strings.HasPrefix(short, releasePrefix)
		if !isDevel && !isRelease {
			return nil
		}
		if (isDevel && fromDevelop) || (isRelease && fromRelease) {
			return nil
		}
		contained, err := c.contains(ref.Hash(), hash)
		if err != nil {
			return err
		}
		if contained {
			fromDevelop = fromDevelop || isDevel
			fromRelease = fromRelease || isRelease
		}
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return fromDevelop, fromRelease, nil
}

// peel resolves a revision to its underlying commit hash, following
// annotated tag objects (possibly nested).
func (c *Classifier) peel(hash plumbing.Hash) (plumbing.Hash, error) {
	for {
		obj, err := c.repo.Object(plumbing.AnyObject, hash)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s: %v", ErrObjectNotFound, hash, err)
		}
		switch o := obj.(type) {
		case *object.Commit:
			return o.Hash, nil
		case *object.Tag:
			hash = o.Target
		default:
			return plumbing.ZeroHash, fmt.Errorf("%w: %s is a %s", ErrUnexpectedObject, hash, obj.Type())
		}
	}
}

// branchTips returns the commit hash of every local branch head.
func (c *Classifier) branchTips() ([]plumbing.Hash, error) {
	refs, err := c.repo.References()
	if err != nil {
		return nil, fmt.Errorf("history: list references: %w", err)
	}
	defer refs.Close()

	var tips []plumbing.Hash
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() && !ref.Hash().IsZero() {
			tips = append(tips, ref.Hash())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tips, nil
}

// reachable returns the set of commits reachable from the given starting
// points, the points themselves included.
func (c *Classifier) reachable(from []plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	seen := make(map[plumbing.Hash]struct{})
	for _, start := range from {
		commit, err := c.repo.CommitObject(start)
		if err != nil {
			// Branch tips may point at not-yet-peeled objects.
			peeled, perr := c.peel(start)
			if perr != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrObjectNotFound, start, err)
			}
			commit, err = c.repo.CommitObject(peeled)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrObjectNotFound, start, err)
			}
		}
		stack := []*object.Commit{commit}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := seen[cur.Hash]; ok {
				continue
			}
			seen[cur.Hash] = struct{}{}
			for _, p := range cur.ParentHashes {
				if _, ok := seen[p]; ok {
					continue
				}
				parent, err := c.repo.CommitObject(p)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrObjectNotFound, p, err)
				}
				stack = append(stack, parent)
			}
		}
	}
	return seen, nil
}

// walk visits every commit reachable from start that is not in the seen set.
func (c *Classifier) walk(start plumbing.Hash, seen map[plumbing.Hash]struct{}, visit func(*object.Commit)) error {
	if _, ok := seen[start]; ok {
		return nil
	}
	commit, err := c.repo.CommitObject(start)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectNotFound, start, err)
	}

	visited := make(map[plumbing.Hash]struct{})
	stack := []*object.Commit{commit}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[cur.Hash]; ok {
			continue
		}
		visited[cur.Hash] = struct{}{}
		visit(cur)
		for _, p := range cur.ParentHashes {
			if _, ok := seen[p]; ok {
				continue
			}
			if _, ok := visited[p]; ok {
				continue
			}
			parent, err := c.repo.CommitObject(p)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrObjectNotFound, p, err)
			}
			stack = append(stack, parent)
		}
	}
	return nil
}

// contains reports whether target is reachable from tip.
func (c *Classifier) contains(tip, target plumbing.Hash) (bool, error) {
	seen, err := c.reachable([]plumbing.Hash{tip})
	if err != nil {
		return false, err
	}
	peeled, err := c.peel(target)
	if err != nil {
		return false, err
	}
	_, ok := seen[peeled]
	return ok, nil
}

// topoSort orders span members oldest first. Parents always precede their
// children; ties break on committer time, then hash, so the order is stable
// across runs.
func topoSort(members map[plumbing.Hash]*object.Commit) []*object.Commit {
	indegree := make(map[plumbing.Hash]int, len(members))
	children := make(map[plumbing.Hash][]plumbing.Hash, len(members))
	for h, commit := range members {
		for _, p := range commit.ParentHashes {
			if _, ok := members[p]; ok {
				indegree[h]++
				children[p] = append(children[p], h)
			}
		}
	}

	var ready []*object.Commit
	for h, commit := range members {
		if indegree[h] == 0 {
			ready = append(ready, commit)
		}
	}

	ordered := make([]*object.Commit, 0, len(members))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			ti, tj := ready[i].Committer.When, ready[j].Committer.When
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return ready[i].Hash.String() < ready[j].Hash.String()
		})
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)
		for _, child := range children[next.Hash] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, members[child])
			}
		}
	}
	return ordered
}
