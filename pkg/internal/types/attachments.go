package types

import "github.com/yeisme/casevault/pkg/internal/model"

// RemoveAttachmentRequest 移除附件请求，支持 JSON 与表单.
type RemoveAttachmentRequest struct {
	Filename string `form:"filename" json:"filename" rule:"required,blobname"`
}

// DownloadAttachmentQuery 下载附件查询参数.
type DownloadAttachmentQuery struct {
	Filename string `form:"filename" rule:"required,blobname"`
}

// ListAttachmentsResponse 附件列表响应，ID 字段名随记录类型为 case_id 或 incident_id.
type ListAttachmentsResponse map[string]any

// NewListAttachmentsResponse 构造列表响应.
func NewListAttachmentsResponse(kind model.OwnerKind, id uint64, files []model.AttachmentEntry) ListAttachmentsResponse {
	return ListAttachmentsResponse{
		kind.IDField(): id,
		"files":        files,
	}
}

// UploadAttachmentsResponse 上传响应.
type UploadAttachmentsResponse struct {
	Message    string                  `json:"message"`
	Uploaded   []model.AttachmentEntry `json:"uploaded"`
	TotalFiles int                     `json:"total_files"`
}

// RemoveAttachmentResponse 移除响应.
type RemoveAttachmentResponse struct {
	Message        string `json:"message"`
	RemainingFiles int    `json:"remaining_files"`
}

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
