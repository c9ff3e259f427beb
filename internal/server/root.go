package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRootRoutes() {
	s.engine.GET("/", s.serviceIndex)
}

// serviceIndex describes the process and where each emulated API lives.
func (s *Server) serviceIndex(c *gin.Context) {
	base := requestBaseURL(c)

	c.JSON(http.StatusOK, gin.H{
		"name":        s.cfg.AppName,
		"version":     s.cfg.AppVersion,
		"description": "Local mock environment for OpenStack APIs",
		"services": gin.H{
			"keystone": base + "/v3",
			"nova":     base + "/v2.1",
			"neutron":  base + "/v2.0",
			"glance":   base + "/v2",
		},
	})
}
