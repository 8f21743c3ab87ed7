package history

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/entireio/histedit/cmd/histedit/cli/logging"

	"github.com/go-git/go-git/v5/plumbing"
)

// Graph is the ancestry of a commit held as an arena: commits are indexed by
// id and linked only through their parent id lists.
type Graph struct {
	commits map[plumbing.Hash]*Commit
	order   []plumbing.Hash
}

// Order returns the walk order. The slice must not be modified.
func (g *Graph) Order() []plumbing.Hash { return g.order }

// Len returns the number of commits in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Contains reports whether id is part of the graph.
func (g *Graph) Contains(id plumbing.Hash) bool {
	_, ok := g.commits[id]
	return ok
}

// Commit returns the commit with the given id.
func (g *Graph) Commit(id plumbing.Hash) (*Commit, bool) {
	c, ok := g.commits[id]
	return c, ok
}

// loadCommits reads every commit reachable from start. Parents missing from
// the store (shallow clones) are treated as the edge of the history.
func loadCommits(ctx context.Context, store Store, start plumbing.Hash) (map[plumbing.Hash]*Commit, error) {
	first, err := store.FindCommit(ctx, start)
	if err != nil {
		return nil, &ResolutionError{ID: start, Err: err}
	}

	commits := map[plumbing.Hash]*Commit{start: first}
	queue := []plumbing.Hash{start}
	for len(queue) > 0 {
		if len(commits)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("walk cancelled: %w", err)
			}
		}

		current := commits[queue[0]]
		queue = queue[1:]
		for _, parent := range current.Parents {
			if _, seen := commits[parent]; seen {
				continue
			}
			c, err := store.FindCommit(ctx, parent)
			if errors.Is(err, ErrObjectNotFound) {
				logging.Debug(ctx, "parent missing from store, treating as history boundary",
					slog.String("commit", current.ID.String()),
					slog.String("parent", parent.String()),
				)
				continue
			}
			if err != nil {
				return nil, &ResolutionError{ID: parent, Err: err}
			}
			commits[parent] = c
			queue = append(queue, parent)
		}
	}
	return commits, nil
}

// WalkOldestFirst returns the ancestry of start ordered so every commit comes
// after all of its ancestors. Merge parents are visited in their recorded
// order, so the result is deterministic.
func WalkOldestFirst(ctx context.Context, store Store, start plumbing.Hash) (*Graph, error) {
	commits, err := loadCommits(ctx, store, start)
	if err != nil {
		return nil, err
	}

	type frame struct {
		id   plumbing.Hash
		next int
	}

	order := make([]plumbing.Hash, 0, len(commits))
	entered := make(map[plumbing.Hash]bool, len(commits))
	stack := []frame{{id: start}}
	entered[start] = true

	// Iterative post-order DFS: a commit is emitted once all its parents are.
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		c := commits[top.id]
		if top.next < len(c.Parents) {
			parent := c.Parents[top.next]
			top.next++
			if _, known := commits[parent]; !known || entered[parent] {
				continue
			}
			entered[parent] = true
			stack = append(stack, frame{id: parent})
			continue
		}
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}

	return &Graph{commits: commits, order: order}, nil
}

// WalkNewestFirst returns the ancestry of start with every commit ahead of its
// parents. When several commits are ready, the newest committer time wins and
// ties fall back to the hash so the order is stable.
func WalkNewestFirst(ctx context.Context, store Store, start plumbing.Hash) (*Graph, error) {
	commits, err := loadCommits(ctx, store, start)
	if err != nil {
		return nil, err
	}

	children := make(map[plumbing.Hash]int, len(commits))
	for _, c := range commits {
		for _, parent := range c.Parents {
			if _, known := commits[parent]; known {
				children[parent]++
			}
		}
	}

	ready := &readyQueue{commits: commits}
	for id := range commits {
		if children[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]plumbing.Hash, 0, len(commits))
	for ready.Len() > 0 {
		id, _ := heap.Pop(ready).(plumbing.Hash)
		order = append(order, id)
		for _, parent := range commits[id].Parents {
			if _, known := commits[parent]; !known {
				continue
			}
			children[parent]--
			if children[parent] == 0 {
				heap.Push(ready, parent)
			}
		}
	}

	return &Graph{commits: commits, order: order}, nil
}

// readyQueue is a max-heap on committer time.
type readyQueue struct {
	commits map[plumbing.Hash]*Commit
	ids     []plumbing.Hash
}

func (q *readyQueue) Len() int { return len(q.ids) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.commits[q.ids[i]], q.commits[q.ids[j]]
	if a.Committer.When != b.Committer.When {
		return a.Committer.When > b.Committer.When
	}
	return a.ID.String() < b.ID.String()
}

func (q *readyQueue) Swap(i, j int) { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }

func (q *readyQueue) Push(x any) {
	id, _ := x.(plumbing.Hash)
	q.ids = append(q.ids, id)
}

func (q *readyQueue) Pop() any {
	last := q.ids[len(q.ids)-1]
	q.ids = q.ids[:len(q.ids)-1]
	return last
}
