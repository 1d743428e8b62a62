package server

import (
	"github.com/gin-gonic/gin"
)

// NewGinEngine 创建一个干净的 Gin 引擎实例。
// 不内置任何默认中间件，由调用方决定治理中间件的集合与顺序。
func NewGinEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}
