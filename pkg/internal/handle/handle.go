// Package handle 提供请求处理器的实现，负责 HTTP 绑定与响应，业务逻辑在 service 包中.
package handle

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/log"
	"github.com/yeisme/casevault/pkg/middleware"
	"github.com/yeisme/casevault/pkg/rule"
)

// requestContext 返回携带操作者的请求上下文.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if user := middleware.GetUser(c); user != "" {
		ctx = service.WithActor(ctx, user)
	}

	return ctx
}

// ownerRef 解析路由参数 :id，非法 ID 与不存在的记录同样返回 404.
func ownerRef(c *gin.Context, kind model.OwnerKind) (model.OwnerRef, bool) {
	id, err := model.ParseOwnerID(c.Param("id"))
	if err != nil {
		abort(c, &service.NotFoundError{Message: kind.Label() + " not found"})
		return model.OwnerRef{}, false
	}

	return model.OwnerRef{Kind: kind, ID: id}, true
}

// abort 按领域错误写出响应，5xx 记录错误日志.
func abort(c *gin.Context, err error) {
	status := service.MapHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		l := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())
		l.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, service.ErrorBody(err))
}

// bindingError 将 gin 绑定错误转换为校验错误，字段按名称排序取第一个生成消息.
func bindingError(err error) error {
	fields := rule.Errors(err)
	if len(fields) == 0 {
		return &service.ValidationError{
			Message: "The request body is malformed.",
			Fields:  map[string]string{"body": "malformed"},
		}
	}

	names := slices.Sorted(maps.Keys(fields))
	first := names[0]

	out := make(map[string]string, len(fields))
	for _, name := range names {
		out[name] = describeRule(fields[name])
	}

	return &service.ValidationError{
		Message: fmt.Sprintf("The %s field %s.", first, out[first]),
		Fields:  out,
	}
}

// describeRule 把 rule.Errors 的 "failed on tag=param" 转为可读描述.
func describeRule(msg string) string {
	tag, param, _ := strings.Cut(strings.TrimPrefix(msg, "failed on "), "=")

	switch tag {
	case "required":
		return "is required"
	case "max":
		return "must not be greater than " + param + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(param, " ", ", ")
	default:
		return "is invalid"
	}
}
