package models

import (
	"encoding/json"
	"math"
)

// ReactionLike is the only reaction kind the detail page exposes.
const ReactionLike = "like"

// Article represents a published article in the saved_files collection.
type Article struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	FullContent string         `json:"fullContent,omitempty"`
	Date        string         `json:"date"`
	Reporter    string         `json:"reporter"`
	Department  string         `json:"department"`
	Email       string         `json:"email"`
	Image       string         `json:"image"`
	Tags        []string       `json:"tags"`
	Views       int            `json:"views"`
	Reactions   map[string]int `json:"reactions"`
}

// UnmarshalJSON decodes a stored article and applies the schema defaults once.
// Records written by older clients may lack views/reactions/tags or carry a
// non-numeric views value; those all normalise to zero values.
func (a *Article) UnmarshalJSON(data []byte) error {
	type alias Article
	aux := struct {
		*alias
		Views interface{} `json:"views"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Views = viewsFrom(aux.Views)
	a.ApplyDefaults()
	return nil
}

// ApplyDefaults fills missing optional fields.
func (a *Article) ApplyDefaults() {
	if a.Views < 0 {
		a.Views = 0
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Reactions == nil {
		a.Reactions = map[string]int{}
	}
	if _, ok := a.Reactions[ReactionLike]; !ok {
		a.Reactions[ReactionLike] = 0
	}
	for kind, n := range a.Reactions {
		if n < 0 {
			a.Reactions[kind] = 0
		}
	}
}

func viewsFrom(v interface{}) int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// ArticleDraft is the input for creating an article.
type ArticleDraft struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	FullContent string   `json:"fullContent,omitempty"`
	Date        string   `json:"date"`
	Reporter    string   `json:"reporter"`
	Department  string   `json:"department"`
	Email       string   `json:"email"`
	Image       string   `json:"image"`
	Tags        []string `json:"tags"`
}

// ArticlePatch carries field edits. Nil fields are left untouched.
type ArticlePatch struct {
	Title       *string   `json:"title,omitempty"`
	Content     *string   `json:"content,omitempty"`
	FullContent *string   `json:"fullContent,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Apply copies the set fields onto a.
func (p *ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.FullContent != nil {
		a.FullContent = *p.FullContent
	}
	if p.Image != nil {
		a.Image = *p.Image
	}
	if p.Tags != nil {
		a.Tags = append([]string{}, (*p.Tags)...)
	}
}

// Dashboard summarises the article feed.
type Dashboard struct {
	TotalArticles  int       `json:"total_articles"`
	TotalViews     int       `json:"total_views"`
	TotalLikes     int       `json:"total_likes"`
	TopArticles    []Article `json:"top_articles"`
	RecentArticles []Article `json:"recent_articles"`
	HasNewAlert    bool      `json:"has_new_alert"`
}
