package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/internal/handle"
	"github.com/yeisme/casevault/pkg/middleware"
)

// RegisterOwnerRoutes 注册案件与事件路由，删除需要 director.
func RegisterOwnerRoutes(g *gin.RouterGroup) {
	focal := middleware.RequireMinRole(middleware.RoleFocalPerson)
	director := middleware.RequireMinRole(middleware.RoleDirector)

	cases := g.Group("/cases")
	{
		cases.POST("", focal, handle.CreateCase)
		cases.GET("/:id", focal, handle.GetCase)
		cases.DELETE("/:id", director, handle.DeleteCase)
		cases.POST("/:id/incidents", focal, handle.CreateIncident)
	}

	incidents := g.Group("/incidents")
	{
		incidents.GET("/:id", focal, handle.GetIncident)
		incidents.DELETE("/:id", director, handle.DeleteIncident)
	}
}
