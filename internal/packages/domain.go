package packages

import "time"

// MaxFileSize is the largest installer a package record may reference.
const MaxFileSize int64 = 1 << 30

// Bucket is the object storage bucket holding installers.
const Bucket = "packages"

// Package is a downloadable installer record.
type Package struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FilePath    string    `json:"filePath"`
	FileSize    int64     `json:"fileSize"`
	Version     string    `json:"version"`
	UploadedBy  *string   `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input is the writable part of a package.
type Input struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	FilePath    string `json:"filePath" validate:"required,max=512"`
	FileSize    int64  `json:"fileSize" validate:"gte=0"`
	Version     string `json:"version" validate:"max=64"`
}
