// Package rule 封装 go-playground/validator，统一使用 rule 标签.
//
// 字段名优先取 json、form、mapstructure 标签，校验错误可直接映射到请求字段.
// 与 gin 的 binding 共享同一个引擎，ShouldBind 与手动校验使用同一套规则.
package rule

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagName 结构体校验标签.
const TagName = "rule"

// MaxBlobNameLen 存储文件名的最大字节数.
const MaxBlobNameLen = 255

var engine = sync.OnceValue(func() *validator.Validate {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok || v == nil {
		v = validator.New()
	}

	v.SetTagName(TagName)
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("blobname", func(fl validator.FieldLevel) bool {
		return IsBlobName(fl.Field().String())
	})

	return v
})

func fieldName(f reflect.StructField) string {
	for _, tag := range [...]string{"json", "form", "mapstructure"} {
		switch name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}

	return f.Name
}

// Engine 返回共享的校验引擎.
func Engine() *validator.Validate {
	return engine()
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func) error {
	return engine().RegisterValidation(tag, fn)
}

// ValidateStruct 校验结构体，错误可交给 Errors 展开.
func ValidateStruct(s any) error {
	return engine().Struct(s)
}

// ValidateVar 按规则校验单个值，例如 ValidateVar(name, "required,blobname").
func ValidateVar(field any, tag string) error {
	return engine().Var(field, tag)
}

// IsBlobName 判断 name 能否作为单段存储文件名.
// 非空，不超过 MaxBlobNameLen 字节，不含 / \ 或 NUL，且不是 "." 或 "..".
func IsBlobName(name string) bool {
	switch {
	case name == "", name == ".", name == "..":
		return false
	case len(name) > MaxBlobNameLen:
		return false
	default:
		return !strings.ContainsAny(name, "/\\\x00")
	}
}

// ValidationErrors 字段名到失败规则的映射.
type ValidationErrors map[string]string

// Errors 展开校验错误，值形如 "failed on max=255"，非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))

	for _, fe := range verrs {
		msg := "failed on " + fe.Tag()
		if p := fe.Param(); p != "" {
			msg += "=" + p
		}

		out[fe.Field()] = msg
	}

	return out
}
