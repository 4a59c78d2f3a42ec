package configs

// AppName 服务名称.
const AppName = "casevault"

// AppVersion 由构建时 -ldflags "-X" 覆盖.
var AppVersion = "0.1.0"
