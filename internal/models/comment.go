package models

import (
	"encoding/json"
)

// AnonymousAuthor is used for comments submitted without a name.
const AnonymousAuthor = "Anonymous"

// MaxCommentWords is the maximum allowed words in a comment body
const MaxCommentWords = 500

// Comment represents a comment on an article, stored under comments_<articleId>.
type Comment struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// UnmarshalJSON accepts both the object form and the legacy bare-string form.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = Comment{Author: AnonymousAuthor, Text: text}
		return nil
	}

	type alias Comment
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Comment(aux)
	if c.Author == "" {
		c.Author = AnonymousAuthor
	}
	return nil
}
