package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neilfarmer/mopenstack/internal/catalog"
	keystonedomain "github.com/neilfarmer/mopenstack/internal/keystone/domain"
)

func (s *Server) registerKeystoneRoutes() {
	v3 := s.engine.Group("/v3")

	v3.GET("/", s.keystoneVersion)

	v3.POST("/auth/tokens", s.createToken)
	v3.GET("/auth/tokens", s.validateToken)
	v3.DELETE("/auth/tokens", s.revokeToken)

	v3.POST("/domains", s.createDomain)
	v3.GET("/domains", s.listDomains)
	v3.GET("/domains/:id", s.getDomain)

	v3.POST("/projects", s.createProject)
	v3.GET("/projects", s.listProjects)
	v3.GET("/projects/:idOrName", s.getProject)
	v3.PATCH("/projects/:idOrName", s.updateProject)
	v3.DELETE("/projects/:idOrName", s.deleteProject)

	v3.POST("/users", s.createUser)
	v3.GET("/users", s.listUsers)
	v3.GET("/users/:id", s.getUser)
	v3.DELETE("/users/:id", s.deleteUser)
}

func (s *Server) keystoneVersion(c *gin.Context) {
	base := requestBaseURL(c)

	c.JSON(http.StatusOK, gin.H{
		"version": gin.H{
			"id":      "v3.14",
			"status":  "stable",
			"updated": "2023-01-01T00:00:00Z",
			"links":   []gin.H{{"rel": "self", "href": base + "/v3"}},
			"media-types": []gin.H{{
				"base": "application/json",
				"type": "application/vnd.openstack.identity-v3+json",
			}},
		},
	})
}

// passwordMethod is the single supported authentication method. Its
// presence in the identity block selects it; any other shape is rejected.
type passwordMethod struct {
	User struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Domain   struct {
			ID string `json:"id"`
		} `json:"domain"`
	} `json:"user"`
}

type authTokensRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string        `json:"methods"`
			Password *passwordMethod `json:"password"`
		} `json:"identity"`
		Scope *struct {
			Project *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

func (s *Server) createToken(c *gin.Context) {
	var req authTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	method := req.Auth.Identity.Password
	if method == nil {
		AbortWithError(c, keystonedomain.ErrUnsupportedAuthMethod)
		return
	}

	domainRef := method.User.Domain.ID
	if domainRef == "" {
		domainRef = "default"
	}

	login := keystonedomain.LoginRequest{
		Username:  method.User.Name,
		Password:  method.User.Password,
		DomainRef: domainRef,
	}
	if req.Auth.Scope != nil && req.Auth.Scope.Project != nil {
		login.Scope = &keystonedomain.ScopeRequest{
			ProjectID:   req.Auth.Scope.Project.ID,
			ProjectName: req.Auth.Scope.Project.Name,
		}
	}

	result, err := s.identitySvc.Login(c.Request.Context(), login)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token := gin.H{
		"methods":    []string{"password"},
		"expires_at": result.Token.ExpiresAt.UTC().Format(time.RFC3339),
		"issued_at":  result.Token.CreatedAt.UTC().Format(time.RFC3339),
		"user": gin.H{
			"id":   result.User.ID,
			"name": result.User.Name,
			"domain": gin.H{
				"id":   result.Domain.ID,
				"name": result.Domain.Name,
			},
		},
		"catalog": catalog.Build(requestBaseURL(c)),
	}
	if result.Project != nil {
		token["project"] = s.projectRef(c, result.Project)
	}

	c.Header("X-Subject-Token", result.RawToken)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) validateToken(c *gin.Context) {
	if c.GetHeader("X-Auth-Token") == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	subject := c.GetHeader("X-Subject-Token")
	intro, err := s.identitySvc.Introspect(c.Request.Context(), subject)
	if err != nil {
		// Validation reports a missing token as 404, unlike the auth
		// middleware which answers 401.
		AbortWithError(c, ErrNotFound)
		return
	}

	token := gin.H{
		"methods": []string{"password"},
		"user": gin.H{
			"id":   intro.User.ID,
			"name": intro.User.Name,
			"domain": gin.H{
				"id":   intro.User.DomainID,
				"name": s.domainName(c, intro.User.DomainID),
			},
		},
	}
	if intro.Project != nil {
		token["project"] = s.projectRef(c, intro.Project)
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) revokeToken(c *gin.Context) {
	if c.GetHeader("X-Auth-Token") == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	subject := c.GetHeader("X-Subject-Token")
	if err := s.identitySvc.Revoke(c.Request.Context(), subject); err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) projectRef(c *gin.Context, project *keystonedomain.Project) gin.H {
	return gin.H{
		"id":   project.ID,
		"name": project.Name,
		"domain": gin.H{
			"id":   project.DomainID,
			"name": s.domainName(c, project.DomainID),
		},
	}
}

func (s *Server) domainName(c *gin.Context, domainID string) string {
	dom, err := s.identitySvc.GetDomain(c.Request.Context(), domainID)
	if err != nil {
		return ""
	}
	return dom.Name
}

type domainCreateRequest struct {
	Domain struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Enabled     *bool  `json:"enabled"`
	} `json:"domain" binding:"required"`
}

func (s *Server) createDomain(c *gin.Context) {
	var req domainCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	dom, err := s.identitySvc.CreateDomain(c.Request.Context(), keystonedomain.CreateDomainRequest{
		Name:        req.Domain.Name,
		Description: req.Domain.Description,
		Enabled:     req.Domain.Enabled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"domain": dom})
}

func (s *Server) getDomain(c *gin.Context) {
	dom, err := s.identitySvc.GetDomain(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": dom})
}

func (s *Server) listDomains(c *gin.Context) {
	domains, err := s.identitySvc.ListDomains(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

type projectCreateRequest struct {
	Project struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		Enabled     *bool   `json:"enabled"`
		DomainID    string  `json:"domain_id"`
		ParentID    *string `json:"parent_id"`
	} `json:"project" binding:"required"`
}

func (s *Server) createProject(c *gin.Context) {
	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	project, err := s.identitySvc.CreateProject(c.Request.Context(), keystonedomain.CreateProjectRequest{
		Name:        req.Project.Name,
		Description: req.Project.Description,
		Enabled:     req.Project.Enabled,
		DomainID:    req.Project.DomainID,
		ParentID:    req.Project.ParentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": projectWithLinks(c, project)})
}

func (s *Server) getProject(c *gin.Context) {
	project, err := s.identitySvc.ResolveProject(c.Request.Context(), c.Param("idOrName"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.identitySvc.ListProjects(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

type projectUpdateRequest struct {
	Project struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Enabled     *bool   `json:"enabled"`
	} `json:"project" binding:"required"`
}

func (s *Server) updateProject(c *gin.Context) {
	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	project, err := s.identitySvc.UpdateProject(c.Request.Context(), c.Param("idOrName"), keystonedomain.UpdateProjectRequest{
		Name:        req.Project.Name,
		Description: req.Project.Description,
		Enabled:     req.Project.Enabled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": projectWithLinks(c, project)})
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.identitySvc.DeleteProject(c.Request.Context(), c.Param("idOrName")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func projectWithLinks(c *gin.Context, project *keystonedomain.Project) gin.H {
	return gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"enabled":     project.Enabled,
		"domain_id":   project.DomainID,
		"parent_id":   project.ParentID,
		"links": gin.H{
			"self": requestBaseURL(c) + "/v3/projects/" + project.ID,
		},
	}
}

type userCreateRequest struct {
	User struct {
		Name             string  `json:"name" binding:"required"`
		Password         string  `json:"password" binding:"required"`
		Email            string  `json:"email"`
		Enabled          *bool   `json:"enabled"`
		DomainID         string  `json:"domain_id"`
		DefaultProjectID *string `json:"default_project_id"`
	} `json:"user" binding:"required"`
}

func (s *Server) createUser(c *gin.Context) {
	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.identitySvc.CreateUser(c.Request.Context(), keystonedomain.CreateUserRequest{
		Name:             req.User.Name,
		Password:         req.User.Password,
		Email:            req.User.Email,
		Enabled:          req.User.Enabled,
		DomainID:         req.User.DomainID,
		DefaultProjectID: req.User.DefaultProjectID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.identitySvc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.identitySvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.identitySvc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
