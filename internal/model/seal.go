// Package model contains the struct definitions shared by the API, the
// worker and the ledger.
package model

import (
	"time"
)

// SealStatus describes what is known about a stored sealed document.
type SealStatus string

const (
	// StatusSealed: stored, not yet re-verified.
	StatusSealed SealStatus = "sealed"
	// StatusAudited: the stored copy re-verified successfully.
	StatusAudited SealStatus = "audited"
	// StatusTampered: the stored copy no longer verifies.
	StatusTampered SealStatus = "tampered"
)

// SealEntry is one row of the seal ledger. The sealed document itself stays
// the authority; the ledger only indexes what was issued.
type SealEntry struct {
	ID               string     `json:"id"`
	OriginalFilename string     `json:"originalFilename"`
	DownloadName     string     `json:"downloadName"`
	ObjectKey        string     `json:"objectKey"`
	VerifyURL        string     `json:"verifyUrl"`
	UploadedAt       time.Time  `json:"uploadedAt"`
	Status           SealStatus `json:"status"`
	AuditMessage     string     `json:"auditMessage,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
