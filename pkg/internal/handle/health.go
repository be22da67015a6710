// Package handle 新增健康检查处理器实现.
package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/imagevault/pkg/context"
	"github.com/yeisme/imagevault/pkg/internal/jobs"
	"github.com/yeisme/imagevault/pkg/middleware"
)

const timeout = 2 * time.Second

// HealthDB 数据库健康检查.
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil { // dbc.DB 来自于嵌入的 *gorm.DB
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": "db client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": err.Error()})
		return
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "db", "status": "ok"})
}

// HealthStorage 对象存储健康检查.
func HealthStorage(c *gin.Context) {
	backend := ctxPkg.GetObjectBackend(c.Request.Context())
	if backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "storage", "status": "unhealthy", "error": "object backend not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	// Head 一个必然不存在的键：能正常返回"不存在"就说明后端可达
	if _, err := backend.Head(ctx, ".healthcheck/probe"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "storage", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "storage", "status": "ok", "mode": backend.Mode()})
}

// HealthJobs 定时任务健康检查，报告滞留资产巡检任务的状态.
func HealthJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "jobs", "status": "unhealthy", "error": "scheduler not initialized"})
		return
	}

	info, err := sched.GetJobInfoByName(jobs.JobAssetSweepStuck)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "jobs", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "jobs", "status": "ok", "sweep": info})
}

// HealthMQ 消息队列健康检查.
func HealthMQ(c *gin.Context) {
	mqc := ctxPkg.GetMQClient(c.Request.Context())
	if mqc == nil { // publisher 与 subscriber 初始化在 New 中, 判空即可
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "mq", "status": "unhealthy", "error": "mq client not initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "mq", "status": "ok"})
}
