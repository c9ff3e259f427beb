package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	novadomain "github.com/neilfarmer/mopenstack/internal/nova/domain"
)

func (s *Server) registerNovaRoutes() {
	v21 := s.engine.Group("/v2.1")
	v21.Use(requireToken(s.identitySvc))

	v21.GET("/", s.novaVersion)

	v21.POST("/flavors", s.createFlavor)
	v21.GET("/flavors", s.listFlavors)
	v21.GET("/flavors/detail", s.listFlavorsDetail)
	v21.GET("/flavors/:idOrName", s.getFlavor)
	v21.DELETE("/flavors/:idOrName", s.deleteFlavor)

	v21.POST("/servers", s.createServer)
	v21.GET("/servers", s.listServers)
	v21.GET("/servers/detail", s.listServersDetail)
	v21.GET("/servers/:idOrName", s.getServer)
	v21.PUT("/servers/:idOrName", s.updateServer)
	v21.DELETE("/servers/:idOrName", s.deleteServer)
	v21.POST("/servers/:idOrName/action", s.serverAction)

	v21.POST("/os-keypairs", s.createKeyPair)
	v21.GET("/os-keypairs", s.listKeyPairs)
	v21.GET("/os-keypairs/:name", s.getKeyPair)
	v21.DELETE("/os-keypairs/:name", s.deleteKeyPair)
}

func (s *Server) novaVersion(c *gin.Context) {
	base := requestBaseURL(c)

	c.JSON(http.StatusOK, gin.H{
		"version": gin.H{
			"id":      "v2.1",
			"status":  "CURRENT",
			"version": "2.90",
			"min_version": "2.1",
			"links": []gin.H{{"rel": "self", "href": base + "/v2.1"}},
		},
	})
}

type flavorCreateRequest struct {
	Flavor struct {
		Name      string `json:"name" binding:"required"`
		VCPUs     int    `json:"vcpus" binding:"required"`
		RAM       int    `json:"ram" binding:"required"`
		Disk      int    `json:"disk"`
		Ephemeral int    `json:"OS-FLV-EXT-DATA:ephemeral"`
		Swap      int    `json:"swap"`
		Public    *bool  `json:"os-flavor-access:is_public"`
	} `json:"flavor" binding:"required"`
}

func (s *Server) createFlavor(c *gin.Context) {
	var req flavorCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	flavor, err := s.computeSvc.CreateFlavor(c.Request.Context(), novadomain.CreateFlavorRequest{
		Name:      req.Flavor.Name,
		VCPUs:     req.Flavor.VCPUs,
		RAM:       req.Flavor.RAM,
		Disk:      req.Flavor.Disk,
		Ephemeral: req.Flavor.Ephemeral,
		Swap:      req.Flavor.Swap,
		Public:    req.Flavor.Public,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flavor": flavor})
}

func (s *Server) listFlavors(c *gin.Context) {
	flavors, err := s.computeSvc.ListFlavors(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	base := requestBaseURL(c)
	summaries := make([]gin.H, 0, len(flavors))
	for _, f := range flavors {
		summaries = append(summaries, gin.H{
			"id":    f.ID,
			"name":  f.Name,
			"links": []gin.H{{"rel": "self", "href": base + "/v2.1/flavors/" + f.ID}},
		})
	}
	c.JSON(http.StatusOK, gin.H{"flavors": summaries})
}

func (s *Server) listFlavorsDetail(c *gin.Context) {
	flavors, err := s.computeSvc.ListFlavors(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flavors": flavors})
}

func (s *Server) getFlavor(c *gin.Context) {
	flavor, err := s.computeSvc.ResolveFlavor(c.Request.Context(), c.Param("idOrName"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flavor": flavor})
}

func (s *Server) deleteFlavor(c *gin.Context) {
	if err := s.computeSvc.DeleteFlavor(c.Request.Context(), c.Param("idOrName")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type serverCreateRequest struct {
	Server struct {
		Name        string           `json:"name" binding:"required"`
		FlavorRef   string           `json:"flavorRef" binding:"required"`
		ImageRef    string           `json:"imageRef"`
		Metadata    map[string]any   `json:"metadata"`
		Networks    []map[string]any `json:"networks"`
		KeyName     *string          `json:"key_name"`
		ConfigDrive bool             `json:"config_drive"`
	} `json:"server" binding:"required"`
}

func (s *Server) createServer(c *gin.Context) {
	var req serverCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	caller := callerIdentity(c)
	server, err := s.computeSvc.CreateServer(c.Request.Context(), novadomain.CreateServerRequest{
		Name:        req.Server.Name,
		FlavorRef:   req.Server.FlavorRef,
		ImageRef:    req.Server.ImageRef,
		Metadata:    req.Server.Metadata,
		Networks:    req.Server.Networks,
		KeyName:     req.Server.KeyName,
		ConfigDrive: req.Server.ConfigDrive,
	}, caller.UserID, caller.ProjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"server": server})
}

func (s *Server) listServers(c *gin.Context) {
	servers, err := s.computeSvc.ListServers(c.Request.Context(), callerIdentity(c).ProjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	base := requestBaseURL(c)
	summaries := make([]gin.H, 0, len(servers))
	for _, srv := range servers {
		summaries = append(summaries, gin.H{
			"id":    srv.ID,
			"name":  srv.Name,
			"links": []gin.H{{"rel": "self", "href": base + "/v2.1/servers/" + srv.ID}},
		})
	}
	c.JSON(http.StatusOK, gin.H{"servers": summaries})
}

func (s *Server) listServersDetail(c *gin.Context) {
	servers, err := s.computeSvc.ListServers(c.Request.Context(), callerIdentity(c).ProjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"servers": servers})
}

func (s *Server) getServer(c *gin.Context) {
	server, err := s.computeSvc.ResolveServer(c.Request.Context(), c.Param("idOrName"), callerIdentity(c).ProjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"server": server})
}

type serverUpdateRequest struct {
	Server struct {
		Name     *string        `json:"name"`
		Metadata map[string]any `json:"metadata"`
	} `json:"server" binding:"required"`
}

func (s *Server) updateServer(c *gin.Context) {
	var req serverUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	server, err := s.computeSvc.UpdateServer(c.Request.Context(), c.Param("idOrName"), callerIdentity(c).ProjectID, novadomain.UpdateServerRequest{
		Name:     req.Server.Name,
		Metadata: req.Server.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"server": server})
}

func (s *Server) deleteServer(c *gin.Context) {
	if err := s.computeSvc.DeleteServer(c.Request.Context(), c.Param("idOrName"), callerIdentity(c).ProjectID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// serverActionRequest is keyed by action name; exactly one key is set per
// request. RawMessage keeps `{"os-start": null}` distinguishable from an
// absent key.
type serverActionRequest struct {
	Reboot  json.RawMessage `json:"reboot"`
	OSStart json.RawMessage `json:"os-start"`
	OSStop  json.RawMessage `json:"os-stop"`
}

func (s *Server) serverAction(c *gin.Context) {
	var req serverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	idOrName := c.Param("idOrName")
	projectID := callerIdentity(c).ProjectID

	var err error
	switch {
	case req.Reboot != nil:
		err = s.computeSvc.RebootServer(ctx, idOrName, projectID)
	case req.OSStart != nil:
		err = s.computeSvc.StartServer(ctx, idOrName, projectID)
	case req.OSStop != nil:
		err = s.computeSvc.StopServer(ctx, idOrName, projectID)
	default:
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type keyPairCreateRequest struct {
	KeyPair struct {
		Name      string `json:"name" binding:"required"`
		PublicKey string `json:"public_key"`
		Type      string `json:"type"`
	} `json:"keypair" binding:"required"`
}

func (s *Server) createKeyPair(c *gin.Context) {
	var req keyPairCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	keypair, err := s.computeSvc.CreateKeyPair(c.Request.Context(), novadomain.CreateKeyPairRequest{
		Name:      req.KeyPair.Name,
		PublicKey: req.KeyPair.PublicKey,
		Type:      req.KeyPair.Type,
	}, callerIdentity(c).UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"keypair": keypair})
}

func (s *Server) listKeyPairs(c *gin.Context) {
	keypairs, err := s.computeSvc.ListKeyPairs(c.Request.Context(), callerIdentity(c).UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	wrapped := make([]gin.H, 0, len(keypairs))
	for i := range keypairs {
		wrapped = append(wrapped, gin.H{"keypair": keypairs[i]})
	}
	c.JSON(http.StatusOK, gin.H{"keypairs": wrapped})
}

func (s *Server) getKeyPair(c *gin.Context) {
	keypair, err := s.computeSvc.GetKeyPair(c.Request.Context(), c.Param("name"), callerIdentity(c).UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keypair": keypair})
}

func (s *Server) deleteKeyPair(c *gin.Context) {
	if err := s.computeSvc.DeleteKeyPair(c.Request.Context(), c.Param("name"), callerIdentity(c).UserID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
