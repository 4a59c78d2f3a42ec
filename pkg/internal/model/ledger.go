package model

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// AttachmentEntry 附件账本中的一条记录.
//
// 旧数据中的元素可能是裸字符串，此时 legacy 为 true，字段按
// {filename: s, original_name: s, size: 0, mime_type: "", uploaded_at: null} 归一化，
// 写回时仍保持字符串形式.
type AttachmentEntry struct {
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mime_type"`
	UploadedAt   *time.Time `json:"uploaded_at"`

	legacy bool
}

// attachmentEntryJSON 避免 MarshalJSON 递归.
type attachmentEntryJSON struct {
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mime_type"`
	UploadedAt   *time.Time `json:"uploaded_at"`
}

// LegacyEntry 构造裸字符串形式的旧条目.
func LegacyEntry(filename string) AttachmentEntry {
	return AttachmentEntry{Filename: filename, OriginalName: filename, legacy: true}
}

// IsLegacy 判断是否为裸字符串旧条目.
func (e AttachmentEntry) IsLegacy() bool {
	return e.legacy
}

// Normalized 返回用于比较与展示的结构化视图.
func (e AttachmentEntry) Normalized() AttachmentEntry {
	if !e.legacy {
		return e
	}

	return AttachmentEntry{Filename: e.Filename, OriginalName: e.Filename}
}

// MarshalJSON 旧条目写回为字符串.
func (e AttachmentEntry) MarshalJSON() ([]byte, error) {
	if e.legacy {
		return sonic.Marshal(e.Filename)
	}

	return sonic.Marshal(attachmentEntryJSON{
		Filename:     e.Filename,
		OriginalName: e.OriginalName,
		Size:         e.Size,
		MimeType:     e.MimeType,
		UploadedAt:   e.UploadedAt,
	})
}

// UnmarshalJSON 同时接受对象与字符串两种形式.
func (e *AttachmentEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode legacy attachment: %w", err)
		}

		*e = LegacyEntry(s)

		return nil
	}

	if bytes.Equal(data, []byte("null")) {
		*e = AttachmentEntry{}
		return nil
	}

	var raw attachmentEntryJSON
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode attachment: %w", err)
	}

	*e = AttachmentEntry{
		Filename:     raw.Filename,
		OriginalName: raw.OriginalName,
		Size:         raw.Size,
		MimeType:     raw.MimeType,
		UploadedAt:   raw.UploadedAt,
	}

	return nil
}

// Ledger 记录上的附件账本，按上传顺序排列，以 JSON 数组存储.
type Ledger []AttachmentEntry

// Scan 实现 sql.Scanner，NULL 与空串视为空账本，无文件名的元素被丢弃.
func (l *Ledger) Scan(src any) error {
	var data []byte

	switch v := src.(type) {
	case nil:
		*l = Ledger{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported ledger column type %T", src)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		*l = Ledger{}
		return nil
	}

	var entries []AttachmentEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode ledger: %w", err)
	}

	out := make(Ledger, 0, len(entries))

	for _, e := range entries {
		if e.Filename != "" {
			out = append(out, e)
		}
	}

	*l = out

	return nil
}

// Value 实现 driver.Valuer，空账本存为 "[]".
func (l Ledger) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}

	b, err := sonic.Marshal([]AttachmentEntry(l))
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}

	return string(b), nil
}

// Normalized 返回所有条目的结构化视图，永不为 nil.
func (l Ledger) Normalized() []AttachmentEntry {
	out := make([]AttachmentEntry, 0, len(l))
	for _, e := range l {
		out = append(out, e.Normalized())
	}

	return out
}

// Find 按归一化文件名精确查找.
func (l Ledger) Find(filename string) (AttachmentEntry, bool) {
	for _, e := range l {
		if e.Filename == filename {
			return e, true
		}
	}

	return AttachmentEntry{}, false
}

// Contains 判断文件名是否在账本中.
func (l Ledger) Contains(filename string) bool {
	_, ok := l.Find(filename)
	return ok
}

// Without 返回去掉指定文件名后的新账本及是否有条目被移除.
func (l Ledger) Without(filename string) (Ledger, bool) {
	out := make(Ledger, 0, len(l))
	removed := false

	for _, e := range l {
		if e.Filename == filename {
			removed = true
			continue
		}

		out = append(out, e)
	}

	return out, removed
}

// Append 返回追加条目后的新账本，不修改原切片.
func (l Ledger) Append(entries ...AttachmentEntry) Ledger {
	out := make(Ledger, 0, len(l)+len(entries))
	out = append(out, l...)

	return append(out, entries...)
}

// Filenames 返回所有文件名.
func (l Ledger) Filenames() []string {
	out := make([]string, 0, len(l))
	for _, e := range l {
		out = append(out, e.Filename)
	}

	return out
}
