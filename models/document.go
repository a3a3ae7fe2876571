package models

import "gorm.io/gorm"

// Document is metadata for an uploaded file. The bytes live on disk under
// StorageKey, AES-encrypted when a document key is configured; portal clients
// may only reach documents whose ClientID matches their linked record.
type Document struct {
	gorm.Model

	ClientID *uint `gorm:"index" json:"client_id,omitempty"`
	PolicyID *uint `gorm:"index" json:"policy_id,omitempty"`
	LeadID   *uint `gorm:"index" json:"lead_id,omitempty"`

	UploadedByID uint `gorm:"not null;index" json:"uploaded_by_id"`

	FileName    string `gorm:"not null" json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `gorm:"uniqueIndex;not null" json:"-"`
	Encrypted   bool   `json:"encrypted"`

	Category string `json:"category"` // policy, id, application, claim, other

	Client     *Client `json:"client,omitempty"`
	Policy     *Policy `json:"policy,omitempty"`
	UploadedBy *User   `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}
