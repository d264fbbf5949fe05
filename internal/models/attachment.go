package models

import "time"

// ReceiptAttachment references an uploaded proof-of-transfer document.
// File content lives in the receipt store under ObjectKey; this record only
// holds the association and is never inspected beyond metadata.
type ReceiptAttachment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	FileName    string `gorm:"not null" json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ObjectKey   string `gorm:"not null;uniqueIndex" json:"object_key"`
	UploadedBy  string `json:"uploaded_by"`

	CreatedAt time.Time `json:"created_at"`
}
