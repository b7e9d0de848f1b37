// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-curator/pkg/types"
)

// importFile is the YAML document read by "article import".
type importFile struct {
	Articles []importArticle `yaml:"articles"`
}

// importArticle is one entry of an import file. UserID falls back to the
// --user flag; Category is an optional category slug.
type importArticle struct {
	UserID      int64      `yaml:"user_id"`
	FeedID      *int64     `yaml:"feed_id"`
	Link        string     `yaml:"link"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Content     string     `yaml:"content"`
	Author      string     `yaml:"author"`
	PublishedAt *time.Time `yaml:"published_at"`
	Category    string     `yaml:"category"`
}

// importRepo is the persistence used by an import.
type importRepo interface {
	InsertArticle(ctx context.Context, a *types.Article) (bool, error)
	CategoryBySlug(ctx context.Context, userID int64, slug string) (types.Category, error)
}

// importSummary counts the outcome of an import.
type importSummary struct {
	Inserted int
	Skipped  int
}

// importArticles decodes r and inserts every entry. Links the user already
// has are skipped. An unknown category slug is an error for that entry.
func importArticles(ctx context.Context, repo importRepo, r io.Reader, defaultUser int64, w io.Writer) (importSummary, error) {
	var f importFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return importSummary{}, fmt.Errorf("parsing import file: %w", err)
	}

	var sum importSummary
	for i, in := range f.Articles {
		a, err := in.article(ctx, repo, defaultUser)
		if err != nil {
			return sum, fmt.Errorf("entry %d: %w", i+1, err)
		}
		ok, err := repo.InsertArticle(ctx, a)
		if err != nil {
			return sum, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if !ok {
			sum.Skipped++
			fmt.Fprintf(w, "  skipped %s (already imported)\n", a.Link)
			continue
		}
		sum.Inserted++
		fmt.Fprintf(w, "  imported %d %s\n", a.ID, a.Title)
	}
	return sum, nil
}

func (in importArticle) article(ctx context.Context, repo importRepo, defaultUser int64) (*types.Article, error) {
	userID := in.UserID
	if userID == 0 {
		userID = defaultUser
	}
	if userID == 0 {
		return nil, errors.New("no user_id and no --user given")
	}
	if in.Link == "" || in.Title == "" {
		return nil, errors.New("link and title are required")
	}
	a := &types.Article{
		UserID:      userID,
		FeedID:      in.FeedID,
		Link:        in.Link,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Author:      in.Author,
		PublishedAt: in.PublishedAt,
	}
	if in.Category != "" {
		c, err := repo.CategoryBySlug(ctx, userID, in.Category)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", in.Category, err)
		}
		a.CategoryID = &c.ID
	}
	return a, nil
}

var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Import articles and set reading flags",
}

var articleImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Insert articles from a YAML file",
	Long: `Import reads a YAML file with an "articles" list (link, title, description,
content, author, published_at, optional category slug) and stores each entry
as an unscored article. Links the user already has are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runArticleImport,
}

func runArticleImport(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	sum, err := importArticles(cmd.Context(), st, f, userID, w)
	fmt.Fprintf(w, "Imported %d article(s), skipped %d\n", sum.Inserted, sum.Skipped)
	return err
}

var articleReadCmd = &cobra.Command{
	Use:   "read <article-id>",
	Short: "Mark an article read (or unread with --unset)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArticleFlag(cmd, args[0], "read")
	},
}

var articleSaveCmd = &cobra.Command{
	Use:   "save <article-id>",
	Short: "Mark an article saved (or unsaved with --unset)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArticleFlag(cmd, args[0], "saved")
	},
}

func setArticleFlag(cmd *cobra.Command, arg, flag string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid article id %q", arg)
	}
	unset, _ := cmd.Flags().GetBool("unset")

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch flag {
	case "read":
		err = st.MarkRead(cmd.Context(), id, !unset)
	case "saved":
		err = st.MarkSaved(cmd.Context(), id, !unset)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Article %d %s=%t\n", id, flag, !unset)
	return nil
}

// parseIDs converts positional arguments to article ids.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid article id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	articleImportCmd.Flags().Int64("user", 0, "user id for entries without user_id")
	articleReadCmd.Flags().Bool("unset", false, "clear the flag instead")
	articleSaveCmd.Flags().Bool("unset", false, "clear the flag instead")

	articleCmd.AddCommand(articleImportCmd)
	articleCmd.AddCommand(articleReadCmd)
	articleCmd.AddCommand(articleSaveCmd)
	rootCmd.AddCommand(articleCmd)
}
