package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": s.deps.Registry.Len()})
	})

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/providers", s.listProviders)
		v1.GET("/providers/:name", s.getProvider)
		v1.POST("/providers/validate", s.validateProvider)
		v1.POST("/preview", s.preview)
		v1.POST("/replay", s.replay)
		v1.POST("/send", s.send)
		v1.GET("/captures", s.listCaptures)
		v1.GET("/captures/:id", s.getCapture)
		v1.GET("/captures/:id/ws", s.replayCaptureWS)
	}
}
