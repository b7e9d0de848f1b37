// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// DefaultInterests is used when a user has not written an interest prompt.
const DefaultInterests = "Select all articles that are informative and well-written."

// promptReserveTokens is held back from the input budget for instructions,
// title, author and category context.
const promptReserveTokens = 1000

const scoreSystemPrompt = `You are a news curator. Your main job is to score each article by how well it matches the reader's stated interests.

For the article, produce:
1. title: a newspaper-style headline, at most 80 characters
2. subtitle: a short tagline, at most 100 characters
3. summary: two or three sentences
4. category_id: the id of the best matching category from the list, or null when none fits
5. relevance_score: a number from 0.0 to 1.0 judged only against the reader's interests

Rules:
- Write title, subtitle and summary in the language of the article. Never translate.
- Score only against the reader's interests below, not your own taste.

Relevance scale:
- 0.9-1.0: squarely on the reader's core interests (rare)
- 0.7-0.9: strongly related
- 0.6-0.7: clearly related
- 0.4-0.6: loosely related
- 0.0-0.4: unrelated

Answer with a single JSON object and nothing else:
{"title": "headline", "subtitle": "tagline", "summary": "two or three sentences", "category_id": 123, "relevance_score": 0.85}`

var scoreUserTmpl = template.Must(template.New("score").Parse(`Article to analyze:

Title: {{.Title}}
Author: {{.Author}}
Content:
{{.Content}}
{{if .Categories}}
Available categories:
{{range .Categories}}  - "{{.Name}}" (ID: {{.ID}}){{if .Description}} - {{.Description}}{{end}}
{{end}}{{else}}
No categories defined yet. Return null for category_id.
{{end}}
Reader's interests:
{{.Interests}}

Analyze the article and answer with the JSON object.`))

// ScoreInput carries what the scoring prompt needs about one article.
type ScoreInput struct {
	Article    *types.Article
	Interests  string
	Categories []types.Category

	// MaxInputTokens bounds the prompt; content is truncated to leave room
	// for the instructions.
	MaxInputTokens int
}

// ScorePrompt renders the scoring prompt for in.
func ScorePrompt(in ScoreInput) (Prompt, error) {
	a := in.Article
	content := a.Content
	if strings.TrimSpace(content) == "" {
		content = a.Description
	}
	if strings.TrimSpace(content) == "" {
		content = "No content available"
	}
	content = StripImages(content)
	if in.MaxInputTokens > 0 {
		content = TruncateTokens(content, in.MaxInputTokens-promptReserveTokens)
	}

	author := a.Author
	if author == "" {
		author = "Unknown"
	}
	interests := strings.TrimSpace(in.Interests)
	if interests == "" {
		interests = DefaultInterests
	}

	var active []types.Category
	for _, c := range in.Categories {
		if !c.IsDeleted {
			active = append(active, c)
		}
	}

	var buf bytes.Buffer
	err := scoreUserTmpl.Execute(&buf, struct {
		Title, Author, Content, Interests string
		Categories                        []types.Category
	}{a.Title, author, content, interests, active})
	if err != nil {
		return Prompt{}, fmt.Errorf("rendering score prompt: %w", err)
	}
	return Prompt{System: scoreSystemPrompt, User: buf.String(), MaxTokens: 600}, nil
}

// scoreResponse tolerates a missing score or category.
type scoreResponse struct {
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	Summary    string   `json:"summary"`
	CategoryID *int64   `json:"category_id"`
	Score      *float64 `json:"relevance_score"`
}

// ParseScore decodes the scoring oracle's JSON answer. Code fences and text
// around the object are ignored. The score is clamped to [0,1]; a missing
// score is 0.
func ParseScore(text string) (types.ScoreResult, error) {
	raw, err := extractObject(text)
	if err != nil {
		return types.ScoreResult{}, err
	}
	var r scoreResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return types.ScoreResult{}, fmt.Errorf("parsing score JSON: %w", err)
	}
	out := types.ScoreResult{
		Title:      r.Title,
		Subtitle:   r.Subtitle,
		Summary:    r.Summary,
		CategoryID: r.CategoryID,
	}
	if r.Score != nil {
		out.Score = Clamp(*r.Score)
	}
	return out, nil
}

// Clamp bounds a score to [0,1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func extractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in response: %q", types.Truncate(text, 80))
	}
	return text[start : end+1], nil
}

const explainSystemPrompt = `You explain content filtering decisions to readers.

An article's relevance score was lowered because it resembles something the reader downvoted earlier. Explain that resemblance.

Keep it to two or three sentences, name the concrete topics or angles the two articles share, and do not judge the reader's preferences or criticize either article.`

var explainUserTmpl = template.Must(template.New("explain").Parse(`The reader downvoted this article earlier:

Title: {{.PastTitle}}
Summary: {{.PastSummary}}

They have now received this article:

Title: {{.Title}}
Summary: {{.Summary}}

The articles are {{.Similarity}} similar, and the relevance score went from {{.Base}} to {{.Adjusted}}.

In two or three sentences, explain what the articles have in common and why the score was lowered.`))

// ExplainInput describes an adjusted article and the downvote it resembles.
type ExplainInput struct {
	Article    *types.Article
	Downvoted  *types.Article
	Similarity float64
}

// ExplainPrompt renders the explanation prompt.
func ExplainPrompt(in ExplainInput) (Prompt, error) {
	adjusted := in.Article.BaseScore()
	if in.Article.AdjustedScore != nil {
		adjusted = *in.Article.AdjustedScore
	}
	var buf bytes.Buffer
	err := explainUserTmpl.Execute(&buf, map[string]string{
		"PastTitle":   in.Downvoted.DisplayTitle(),
		"PastSummary": types.Truncate(in.Downvoted.DisplaySummary(), 300),
		"Title":       in.Article.DisplayTitle(),
		"Summary":     types.Truncate(in.Article.DisplaySummary(), 300),
		"Similarity":  Percent(in.Similarity),
		"Base":        fmt.Sprintf("%.2f", in.Article.BaseScore()),
		"Adjusted":    fmt.Sprintf("%.2f", adjusted),
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("rendering explanation prompt: %w", err)
	}
	return Prompt{System: explainSystemPrompt, User: buf.String(), MaxTokens: 200}, nil
}

// Percent formats a similarity as a whole percentage, e.g. 0.9 -> "90%".
func Percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

var (
	imgTagRe     = regexp.MustCompile(`(?i)<img[^>]*>`)
	imageURLRe   = regexp.MustCompile(`(?i)https?://[^\s<>"]+?\.(?:jpg|jpeg|png|gif|webp|svg|bmp|ico)\b\S*`)
	pictureRe    = regexp.MustCompile(`(?is)<picture[^>]*>.*?</picture>`)
	figureRe     = regexp.MustCompile(`(?is)<figure[^>]*>.*?</figure>`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
	spacesRe     = regexp.MustCompile(` +`)
)

// StripImages removes image tags, picture and figure blocks and bare image
// URLs, then collapses the whitespace they leave behind.
func StripImages(content string) string {
	if content == "" {
		return content
	}
	content = imgTagRe.ReplaceAllString(content, "")
	content = imageURLRe.ReplaceAllString(content, "")
	content = pictureRe.ReplaceAllString(content, "")
	content = figureRe.ReplaceAllString(content, "")
	content = blankLinesRe.ReplaceAllString(content, "\n\n")
	content = spacesRe.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// TruncateTokens cuts text to roughly maxTokens at four characters per
// token, appending "..." when anything was removed.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	maxChars := maxTokens * 4
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return types.Truncate(text, maxChars) + "..."
}
