package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neilfarmer/mopenstack/internal/glance"
)

func (s *Server) registerGlanceRoutes() {
	v2 := s.engine.Group("/v2")

	v2.GET("/images", s.listImages)
	v2.GET("/images/:idOrAlias", s.getImage)
}

func (s *Server) listImages(c *gin.Context) {
	images := glance.List(c.Query("name"))
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (s *Server) getImage(c *gin.Context) {
	image, err := glance.Get(c.Param("idOrAlias"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}
