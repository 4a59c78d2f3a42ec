package model

import (
	"fmt"
	"strconv"
)

// OwnerKind 附件所属记录的类型，同时作为路由段与存储前缀.
type OwnerKind string

const (
	KindCase     OwnerKind = "cases"
	KindIncident OwnerKind = "incidents"
)

// OwnerKinds 所有记录类型.
var OwnerKinds = []OwnerKind{KindCase, KindIncident}

// ParseOwnerKind 解析路由中的记录类型.
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch OwnerKind(s) {
	case KindCase, KindIncident:
		return OwnerKind(s), nil
	default:
		return "", fmt.Errorf("unknown owner kind %q", s)
	}
}

// Label 返回错误信息中使用的名称.
func (k OwnerKind) Label() string {
	if k == KindIncident {
		return "Incident"
	}

	return "Case"
}

// IDField 返回列表响应中的主键字段名.
func (k OwnerKind) IDField() string {
	if k == KindIncident {
		return "incident_id"
	}

	return "case_id"
}

// Table 返回对应的数据表名.
func (k OwnerKind) Table() string {
	return string(k)
}

// OwnerRef 标识一条持有账本的记录.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   uint64    `json:"id"`
}

// ParseOwnerID 解析路由中的记录 ID.
func ParseOwnerID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid owner id %q", s)
	}

	return id, nil
}

// IDString 返回十进制 ID.
func (r OwnerRef) IDString() string {
	return strconv.FormatUint(r.ID, 10)
}

func (r OwnerRef) String() string {
	return string(r.Kind) + "/" + r.IDString()
}
