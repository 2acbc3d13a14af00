package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Register mounts the dashboard endpoints on g.
func Register(g *gin.RouterGroup, h *Handlers) {
	g.GET("/summary", h.Summary)
	g.GET("/charts", h.Charts)
	g.GET("/report.csv", h.ReportCSV)
	g.GET("/report.pdf", h.ReportPDF)
	g.GET("/profile/report.pdf", h.ProfileReportPDF)

	g.GET("/config/:key", h.GetConfig)
	g.PUT("/config/:key", h.PutConfig)
	g.POST("/import", h.Import)

	g.POST("/trafficgen", h.StartTrafficGen)
	g.DELETE("/trafficgen", h.StopTrafficGen)
	g.GET("/streams/:id/preview", h.Preview)
	g.GET("/history", h.History)
	g.GET("/ws", h.Live)
}

// AccessLog logs one line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
