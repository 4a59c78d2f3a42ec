package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// Actor 触发事件的用户标识.
	Actor string `json:"actor,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// OwnerRef 标识持有账本的记录.
type OwnerRef struct {
	Kind string `json:"kind"` // cases / incidents
	ID   uint64 `json:"id"`
}

// AttachmentRef 一个附件的存储信息.
type AttachmentRef struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name,omitempty"`
	Size         int64  `json:"size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	Key          string `json:"key"`
}

// AttachmentStoredPayload 一次上传提交的全部附件.
type AttachmentStoredPayload struct {
	Owner       OwnerRef        `json:"owner"`
	Attachments []AttachmentRef `json:"attachments"`
	TotalFiles  int             `json:"total_files"`
}

// AttachmentRemovedPayload 附件被移除.
type AttachmentRemovedPayload struct {
	Owner          OwnerRef `json:"owner"`
	Filename       string   `json:"filename"`
	Key            string   `json:"key"`
	RemainingFiles int      `json:"remaining_files"`
}

// AttachmentPurgedPayload 记录前缀被清空.
type AttachmentPurgedPayload struct {
	Owner   OwnerRef `json:"owner"`
	Prefix  string   `json:"prefix"`
	Deleted int      `json:"deleted"`
	Reason  string   `json:"reason,omitempty"` // owner_deleted / orphan_sweep / manual
}
