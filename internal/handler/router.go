package handler

import (
	"consumesystem/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, consumeService *service.ConsumeService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, consumeService)

	api := r.Group("/api/v1")
	{
		consume := api.Group("/consume")
		{
			consume.POST("/execute", h.Consume)
			consume.POST("/batch", h.ConsumeBatch)
		}

		account := api.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.POST("/recharge", h.Recharge)
			account.GET("/recharges", h.ListRecharges)
		}

		record := api.Group("/record")
		{
			record.GET("/list", h.ListRecords)
		}
	}

	return r
}
