package kyc

import "time"

type DocumentStatus string

const (
	DocumentNotSubmitted DocumentStatus = "NOT_SUBMITTED"
	DocumentPending      DocumentStatus = "PENDING"
	DocumentUnderReview  DocumentStatus = "UNDER_REVIEW"
	DocumentApproved     DocumentStatus = "APPROVED"
	DocumentRejected     DocumentStatus = "REJECTED"
)

func (s DocumentStatus) Terminal() bool {
	return s == DocumentApproved || s == DocumentRejected
}

// Trust score bounds. Each approved document credits TrustDelta, capped at
// TrustCeiling so repeated submissions cannot inflate the score forever.
const (
	TrustDelta   = 30
	TrustCeiling = 100
)

type Document struct {
	ID         string         `gorm:"column:id;primaryKey;type:char(26)" json:"id"`
	EmployerID string         `gorm:"column:employer_id;index;not null" json:"employer_id"`
	DocType    string         `gorm:"column:doc_type;type:varchar(50);not null" json:"doc_type"`
	FileURL    string         `gorm:"column:file_url;type:varchar(512)" json:"file_url"`
	Status     DocumentStatus `gorm:"column:status;type:varchar(20);default:'PENDING'" json:"status"`
	Confidence float64        `gorm:"column:confidence" json:"confidence,omitempty"`
	Reason     string         `gorm:"column:reason;type:text" json:"reason,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	ReviewedAt *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

func (Document) TableName() string {
	return "kyc_documents"
}

type EmployerTrust struct {
	EmployerID string    `gorm:"column:employer_id;primaryKey;type:char(26)" json:"employer_id"`
	Score      int       `gorm:"column:score;default:0" json:"score"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EmployerTrust) TableName() string {
	return "employer_trust_scores"
}
