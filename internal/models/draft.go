package models

// Draft is the in-progress article held under the edit_* keys.
type Draft struct {
	Subject  string            `json:"subject"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags"`
	Captions map[string]string `json:"captions"`
	Files    []string          `json:"files"`
	Image    string            `json:"image,omitempty"`
	FileName string            `json:"fileName,omitempty"`
	// File is the first uploaded file as a data URL.
	File string `json:"file,omitempty"`
}

// DraftEdit carries user edits to the draft. Nil fields are left untouched.
type DraftEdit struct {
	Subject  *string            `json:"subject,omitempty"`
	Content  *string            `json:"content,omitempty"`
	Tags     *[]string          `json:"tags,omitempty"`
	Captions *map[string]string `json:"captions,omitempty"`
	Image    *string            `json:"image,omitempty"`
}

// DraftResult is what the remote generator returns.
type DraftResult struct {
	Title    string            `json:"title,omitempty"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags,omitempty"`
	Captions map[string]string `json:"captions,omitempty"`
}

// FilePayload is a file handed to the generator.
type FilePayload struct {
	Name string
	Type string
	Data []byte
}

// PublishRequest is the reporter metadata attached when a draft is published.
type PublishRequest struct {
	Date        string `json:"date"`
	Reporter    string `json:"reporter"`
	Department  string `json:"department"`
	Email       string `json:"email"`
	Image       string `json:"image"`
	FullContent string `json:"fullContent,omitempty"`
}

// SubmitRequest moves the editor's file set into the draft keys.
type SubmitRequest struct {
	Subject string   `json:"subject"`
	Tags    []string `json:"tags"`
}
