// Package router 管理路由配置，将路径、角色要求与处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/handle"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/middleware"
	"github.com/yeisme/casevault/pkg/rule"
)

// ObjHandlers 一组附件处理器. router 包只负责将路径和处理器绑定到 gin 引擎，
// 处理器的实现由 pkg/internal/handle 提供并注入进来.
type ObjHandlers interface {
	Upload() gin.HandlerFunc
	Download() gin.HandlerFunc
	Delete() gin.HandlerFunc
	List() gin.HandlerFunc
}

// Register 将附件路由绑定到传入的路由组，路由组形如 /cases/:id/attachments：
//
//	GET    /          -> List
//	POST   /          -> Upload（非 multipart 时为移除）
//	DELETE /          -> Delete
//	GET    /download  -> Download
func Register(group *gin.RouterGroup, handlers ObjHandlers) {
	group.GET("", handlers.List())
	group.POST("", handlers.Upload())
	group.DELETE("", handlers.Delete())
	group.GET("/download", handlers.Download())
}

// Setup 注册全部 API 路由，返回 API 路由组.
func Setup(e *gin.Engine, cfg *configs.AppConfig) *gin.RouterGroup {
	// 绑定时使用 rule 标签校验
	rule.Engine()

	api := e.Group(cfg.Server.BasePath,
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/attachments/download$`})),
	)

	RegisterOpsRoutes(api)
	RegisterOwnerRoutes(api)
	RegisterAttachmentRoutes(api)
	RegisterSwaggerRoute(e)

	return api
}

// RegisterAttachmentRoutes 为每类记录注册证据附件路由.
func RegisterAttachmentRoutes(g *gin.RouterGroup) {
	for _, kind := range model.OwnerKinds {
		group := g.Group("/"+string(kind)+"/:id/attachments", middleware.RequireMinRole(middleware.RoleFocalPerson))
		Register(group, handle.NewAttachmentHandlers(kind))
	}
}
