package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sports-newsroom-api/internal/models"
)

var (
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	reactionKindRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator provides validation methods
type Validator struct {
	maxCommentWords int
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{maxCommentWords: models.MaxCommentWords}
}

// ValidateArticleDraft validates an article about to be published
func (v *Validator) ValidateArticleDraft(draft *models.ArticleDraft) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(draft.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(draft.Content) == "" {
		errors = append(errors, ValidationError{Field: "content", Message: "content is required"})
	}

	if draft.Email != "" && !emailRegex.MatchString(draft.Email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: draft.Email})
	}

	// Accept either a calendar date or a full timestamp
	if draft.Date != "" && !isValidDate(draft.Date) {
		errors = append(errors, ValidationError{Field: "date", Message: "invalid date format", Value: draft.Date})
	}

	return errors
}

// ValidateArticlePatch rejects edits that would blank a required field
func (v *Validator) ValidateArticlePatch(patch *models.ArticlePatch) []ValidationError {
	var errors []ValidationError

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title cannot be empty"})
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		errors = append(errors, ValidationError{Field: "content", Message: "content cannot be empty"})
	}

	return errors
}

// ValidateComment validates a comment body
func (v *Validator) ValidateComment(text string) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(text) == "" {
		errors = append(errors, ValidationError{Field: "text", Message: "text is required"})
	} else {
		wordCount := len(strings.Fields(text))
		if wordCount > v.maxCommentWords {
			errors = append(errors, ValidationError{
				Field:   "text",
				Message: fmt.Sprintf("text exceeds maximum of %d words (has %d)", v.maxCommentWords, wordCount),
			})
		}
	}

	return errors
}

// ValidateReactionKind validates a reaction name such as "like"
func (v *Validator) ValidateReactionKind(kind string) []ValidationError {
	if !reactionKindRegex.MatchString(kind) {
		return []ValidationError{{Field: "kind", Message: "invalid reaction kind", Value: kind}}
	}
	return nil
}

// ValidateSubmission checks the editor hand-off: a subject and at least one uploaded file
func (v *Validator) ValidateSubmission(subject string, fileCount int) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(subject) == "" {
		errors = append(errors, ValidationError{Field: "subject", Message: "subject is required"})
	}
	if fileCount == 0 {
		errors = append(errors, ValidationError{Field: "files", Message: "at least one file must be uploaded"})
	}

	return errors
}

// ValidateDescriptor validates a remote file descriptor for preload
func (v *Validator) ValidateDescriptor(rawURL, name string) []ValidationError {
	var errors []ValidationError

	if rawURL == "" {
		errors = append(errors, ValidationError{Field: "url", Message: "url is required"})
	} else if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{Field: "url", Message: "url must be absolute http or https", Value: rawURL})
	}
	if strings.TrimSpace(name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	}

	return errors
}

// IsValidSessionID reports whether s is a session id this service could have issued
func IsValidSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isValidDate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
