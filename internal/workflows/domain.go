package workflows

import "time"

// MaxVideoSize is the largest video a workflow may reference.
const MaxVideoSize int64 = 200 << 20

// Bucket is the object storage bucket holding workflow videos.
const Bucket = "workflows"

// Workflow is a documented procedure with an optional video.
type Workflow struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoPath       string    `json:"videoPath"`
	VideoURL        string    `json:"videoUrl,omitempty"`
	VideoSize       int64     `json:"videoSize"`
	MarkdownContent string    `json:"markdownContent"`
	IsPublic        bool      `json:"isPublic"`
	UploadedBy      *string   `json:"uploadedBy"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Input is the writable part of a workflow.
type Input struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=4000"`
	VideoPath       string `json:"videoPath" validate:"max=512"`
	VideoSize       int64  `json:"videoSize" validate:"gte=0"`
	MarkdownContent string `json:"markdownContent"`
	IsPublic        bool   `json:"isPublic"`
}
