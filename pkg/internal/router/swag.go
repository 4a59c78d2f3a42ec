package router

import (
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/casevault/docs"
	"github.com/yeisme/casevault/pkg/configs"
)

// RegisterSwaggerRoute 调试模式下在 /swagger 提供 API 文档.
func RegisterSwaggerRoute(r *gin.Engine) {
	cfg := configs.GetConfig()
	if !cfg.Server.Debug {
		return
	}

	docs.SwaggerInfo.Host = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.DefaultModelsExpandDepth(1),
		ginSwagger.DocExpansion("none"),
	))
}
