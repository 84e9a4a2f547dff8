package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	authdomain "github.com/smallbiznis/flyerpoint/internal/auth/domain"
	obscontext "github.com/smallbiznis/flyerpoint/internal/observability/context"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type UpdateMeRequest struct {
	Nickname string `json:"nickname"`
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.authSvc.Register(c.Request.Context(), userdomain.RegisterRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Nickname: strings.TrimSpace(req.Nickname),
		Role:     strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, session)
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.authSvc.Login(c.Request.Context(), userdomain.LoginRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, session)
}

func (s *Server) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token, err := s.authSvc.AdminLogin(c.Request.Context(), req.Password)
	if err != nil {
		s.recordAudit(c, auditdomain.Entry{
			ActorType:  auditdomain.ActorTypeAdmin,
			ActorID:    authdomain.AdminSubject,
			Action:     "admin.login_failed",
			TargetType: "admin",
			TargetID:   authdomain.AdminSubject,
			Metadata:   map[string]any{"ip": c.ClientIP()},
		})
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, token)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if principal.IsAdmin() {
		respond(c, http.StatusOK, gin.H{"role": principal.Role})
		return
	}

	user, err := s.userSvc.Get(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, user)
}

func (s *Server) UpdateMe(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok || principal.IsAdmin() {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.UpdateNickname(c.Request.Context(), principal.UserID, req.Nickname)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, user)
}

// AuthRequired verifies the bearer token and stores the principal on both
// the gin context and the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authSvc.Verify(c.Request.Context(), raw)
		if err != nil {
			s.log.Debug("bearer token rejected", zap.Error(err))
			AbortWithError(c, err)
			return
		}

		actorType := string(auditdomain.ActorTypeUser)
		if principal.IsAdmin() {
			actorType = string(auditdomain.ActorTypeAdmin)
		}
		ctx := obscontext.WithActor(c.Request.Context(), actorType, principal.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	return principal, ok
}
