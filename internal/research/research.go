// Package research implements the literature-review pipeline: academic
// search over arXiv and Semantic Scholar, PDF summarization, and a
// review generator that combines both into a markdown report.
package research

// Paper is the unified shape for one search hit, regardless of source.
type Paper struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// DefaultMaxResults is the per-source search result cap when the
// request does not specify one.
const DefaultMaxResults = 5
