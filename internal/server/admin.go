package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"go.uber.org/zap"
)

type listUsersQuery struct {
	pagination.Pagination
	Role     string `form:"role"`
	Search   string `form:"search"`
	Approved string `form:"approved"`
}

type approveBusinessRequest struct {
	Approved bool `json:"approved"`
}

func (s *Server) Dashboard(c *gin.Context) {
	totals, err := s.ledgerSvc.Totals(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, totals)
}

func (s *Server) ListUsers(c *gin.Context) {
	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	approved, err := optionalBool("approved", query.Approved)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.userSvc.List(c.Request.Context(), userdomain.ListUserRequest{
		Role:       strings.TrimSpace(query.Role),
		Search:     strings.TrimSpace(query.Search),
		Approved:   approved,
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateUserStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.SetStatus(c.Request.Context(), id, strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionUserStatus,
		TargetType: auditdomain.TargetUser,
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"status": string(user.Status)},
	})

	respond(c, http.StatusOK, user)
}

func (s *Server) ApproveBusiness(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req approveBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.SetBusinessApproval(c.Request.Context(), id, req.Approved)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionBusinessApproval,
		TargetType: auditdomain.TargetUser,
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"approved": user.BusinessApproved},
	})

	respond(c, http.StatusOK, user)
}

func (s *Server) ReconcileUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.ledgerSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

// recordAudit logs and swallows audit failures; the admin action has
// already been committed.
func (s *Server) recordAudit(c *gin.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(c.Request.Context(), entry); err != nil {
		s.log.Warn("audit record failed", zap.String("action", entry.Action), zap.Error(err))
	}
}
