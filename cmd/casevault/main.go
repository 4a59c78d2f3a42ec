// Package main casevault 服务与运维命令入口.
package main

import (
	"os"

	"github.com/yeisme/casevault/pkg/cmd"
)

//	@title			CaseVault API
//	@version		1.0
//	@description	为儿童保护案件与事件记录管理证据附件：上传、列出、下载与移除，存储对象与账本保持一致。
//	@description	身份由 oauth2-proxy 注入的 X-Auth-Request-Email 提供，角色由 X-Role 提供。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@BasePath	/

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
