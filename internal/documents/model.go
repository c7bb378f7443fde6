package documents

import "time"

type DocumentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
}

// Document is a published regulation or form. Dates are optional.
type Document struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name" validate:"required,max=100"`
	FileLink       string     `json:"file_link" validate:"required,url,max=200"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	PublishedBy    string     `json:"published_by" validate:"max=100"`
	SignedBy       string     `json:"signed_by" validate:"max=100"`
	DocumentTypeID *int64     `json:"document_type_id,omitempty" validate:"omitempty,gt=0"`
	UploadedAt     time.Time  `json:"uploaded_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
