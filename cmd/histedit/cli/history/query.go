package history

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sahilm/fuzzy"
)

// DetachedLabel is reported as the branch name when HEAD is detached.
const DetachedLabel = "HEAD (detached)"

const (
	shortMessageMax   = 72
	shortMessageKeep  = 69
	shortMessageTrail = "..."
)

// RepoInfo summarises an opened repository.
type RepoInfo struct {
	Path        string `json:"path"`
	Branch      string `json:"branch"`
	CommitCount int    `json:"commit_count"`
}

// CommitSummary is one row of the history listing.
type CommitSummary struct {
	ID           string `json:"id"`
	ShortMessage string `json:"short_message"`
	AuthorName   string `json:"author_name"`
	AuthorEmail  string `json:"author_email"`
	AuthorTime   int64  `json:"author_time"`
}

// SignatureDetail is a signature as shown to users.
type SignatureDetail struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Time          int64  `json:"time"`
	OffsetMinutes int    `json:"offset_minutes"`
}

// CommitDetail is the full metadata of one commit.
type CommitDetail struct {
	ID        string          `json:"id"`
	Tree      string          `json:"tree"`
	Parents   []string        `json:"parents"`
	Author    SignatureDetail `json:"author"`
	Committer SignatureDetail `json:"committer"`
	Message   string          `json:"message"`
	IsMerge   bool            `json:"is_merge"`
}

// SearchResult is a commit whose subject matched a fuzzy query.
type SearchResult struct {
	CommitSummary
	Score          int   `json:"score"`
	MatchedIndexes []int `json:"matched_indexes"`
}

// QueryService answers read-only questions about a repository.
type QueryService struct {
	store Store
	path  string
}

// NewQueryService creates a query service. path is only reported back in RepoInfo.
func NewQueryService(store Store, path string) *QueryService {
	return &QueryService{store: store, path: path}
}

// Open reports the current branch and how many commits are reachable from HEAD.
// An empty repository has zero commits; a detached HEAD is labelled
// DetachedLabel.
func (q *QueryService) Open(ctx context.Context) (RepoInfo, error) {
	info := RepoInfo{Path: q.path}

	head, err := q.store.ResolveHead(ctx)
	if err != nil {
		return info, fmt.Errorf("resolving HEAD: %w", err)
	}

	switch {
	case head.Detached:
		info.Branch = DetachedLabel
	default:
		info.Branch = head.Ref.Short()
	}
	if head.Unborn {
		return info, nil
	}

	commits, err := loadCommits(ctx, q.store, head.Tip)
	if err != nil {
		return info, err
	}
	info.CommitCount = len(commits)
	return info, nil
}

// List returns up to limit commits reachable from HEAD, newest first,
// skipping the first offset. A limit of zero or less returns everything
// after offset.
func (q *QueryService) List(ctx context.Context, offset, limit int) ([]CommitSummary, error) {
	graph, err := q.headGraph(ctx)
	if err != nil || graph == nil {
		return []CommitSummary{}, err
	}

	order := graph.Order()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(order) {
		return []CommitSummary{}, nil
	}
	end := len(order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	summaries := make([]CommitSummary, 0, end-offset)
	for _, id := range order[offset:end] {
		c, _ := graph.Commit(id)
		summaries = append(summaries, summarize(c))
	}
	return summaries, nil
}

// Detail returns the full metadata of the commit with the given id.
func (q *QueryService) Detail(ctx context.Context, id plumbing.Hash) (CommitDetail, error) {
	c, err := q.store.FindCommit(ctx, id)
	if err != nil {
		return CommitDetail{}, &ResolutionError{ID: id, Err: err}
	}

	parents := make([]string, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = p.String()
	}
	return CommitDetail{
		ID:        c.ID.String(),
		Tree:      c.Tree.String(),
		Parents:   parents,
		Author:    signatureDetail(c.Author),
		Committer: signatureDetail(c.Committer),
		Message:   c.Message,
		IsMerge:   c.IsMerge(),
	}, nil
}

// Search fuzzy-matches query against the subject of every commit reachable
// from HEAD. Results are ordered best match first; ties keep history order.
func (q *QueryService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	graph, err := q.headGraph(ctx)
	if err != nil || graph == nil {
		return []SearchResult{}, err
	}

	source := subjectSource{graph: graph}
	matches := fuzzy.FindFrom(query, source)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		c, _ := graph.Commit(graph.Order()[m.Index])
		results = append(results, SearchResult{
			CommitSummary:  summarize(c),
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return results, nil
}

// headGraph walks HEAD newest first. Returns a nil graph for an empty repository.
func (q *QueryService) headGraph(ctx context.Context) (*Graph, error) {
	head, err := q.store.ResolveHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Unborn {
		return nil, nil
	}
	return WalkNewestFirst(ctx, q.store, head.Tip)
}

// subjectSource exposes commit subjects to the fuzzy matcher.
type subjectSource struct {
	graph *Graph
}

func (s subjectSource) String(i int) string {
	c, _ := s.graph.Commit(s.graph.Order()[i])
	return c.Subject()
}

func (s subjectSource) Len() int { return s.graph.Len() }

func summarize(c *Commit) CommitSummary {
	return CommitSummary{
		ID:           c.ID.String(),
		ShortMessage: ShortMessage(c.Message),
		AuthorName:   c.Author.Name,
		AuthorEmail:  c.Author.Email,
		AuthorTime:   c.Author.When,
	}
}

func signatureDetail(s Signature) SignatureDetail {
	return SignatureDetail{
		Name:          s.Name,
		Email:         s.Email,
		Time:          s.When,
		OffsetMinutes: s.OffsetMinutes,
	}
}

// ShortMessage returns the first line of message, cut to 69 characters plus
// "..." when it is longer than 72 characters.
func ShortMessage(message string) string {
	c := Commit{Message: message}
	subject := []rune(c.Subject())
	if len(subject) > shortMessageMax {
		return string(subject[:shortMessageKeep]) + shortMessageTrail
	}
	return string(subject)
}
