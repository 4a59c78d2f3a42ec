package types

import "time"

// CreateCaseRequest 创建案件请求.
type CreateCaseRequest struct {
	CaseNumber string `json:"case_number" rule:"required,max=64"`
	Title      string `json:"title"       rule:"required,max=255"`
	Status     string `json:"status"      rule:"omitempty,oneof=open closed"`
}

// CreateIncidentRequest 创建事件请求.
type CreateIncidentRequest struct {
	Title       string     `json:"title"       rule:"required,max=255"`
	Description string     `json:"description" rule:"max=10000"`
	OccurredAt  *time.Time `json:"occurred_at"`
}
