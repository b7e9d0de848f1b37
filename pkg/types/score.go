package types

// ScoreResult is the scoring oracle's verdict for one article.
type ScoreResult struct {
	Title      string  `json:"title" yaml:"title"`
	Subtitle   string  `json:"subtitle" yaml:"subtitle"`
	Summary    string  `json:"summary" yaml:"summary"`
	CategoryID *int64  `json:"category_id" yaml:"category_id"`
	Score      float64 `json:"relevance_score" yaml:"relevance_score"`
}

// FallbackScore is substituted when the oracle fails: the original title, an
// empty subtitle, the first 200 characters of the description, no category
// and a zero score.
func FallbackScore(a *Article) ScoreResult {
	return ScoreResult{
		Title:   a.Title,
		Summary: Truncate(a.Description, 200),
		Score:   0,
	}
}
