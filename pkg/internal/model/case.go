package model

import "time"

// Case 案件记录，持有案件级证据附件账本.
type Case struct {
	ID            uint64     `gorm:"primaryKey"          json:"id"`
	CaseNumber    string     `gorm:"size:64;uniqueIndex" json:"case_number"`
	Title         string     `gorm:"size:255"            json:"title"`
	Status        string     `gorm:"size:32;index"       json:"status"`
	CreatedBy     string     `gorm:"size:255;index"      json:"created_by,omitempty"`
	EvidenceFiles Ledger     `gorm:"type:text"           json:"evidence_files"`
	Version       int64      `gorm:"not null;default:0"  json:"-"`
	Incidents     []Incident `gorm:"foreignKey:CaseID"   json:"incidents,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// 案件状态.
const (
	CaseStatusOpen   = "open"
	CaseStatusClosed = "closed"
)

// Incident 事件记录，属于某个案件，持有自己的证据附件账本.
type Incident struct {
	ID            uint64     `gorm:"primaryKey"         json:"id"`
	CaseID        uint64     `gorm:"index;not null"     json:"case_id"`
	Title         string     `gorm:"size:255"           json:"title"`
	Description   string     `gorm:"type:text"          json:"description,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
	EvidenceFiles Ledger     `gorm:"type:text"          json:"evidence_files"`
	Version       int64      `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// All 返回需要迁移的模型.
func All() []any {
	return []any{&Case{}, &Incident{}}
}
