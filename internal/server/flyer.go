package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
)

type listFlyersQuery struct {
	pagination.Pagination
	Category string `form:"category"`
	Search   string `form:"search"`
	Status   string `form:"status"`
}

type createFlyerRequest struct {
	StoreName  string                          `json:"storeName"`
	Category   string                          `json:"category"`
	Title      string                          `json:"title"`
	Subtitle   string                          `json:"subtitle"`
	Tags       []string                        `json:"tags"`
	ValidFrom  string                          `json:"validFrom"`
	ValidUntil string                          `json:"validUntil"`
	SharePoint int64                           `json:"sharePoint"`
	QRPoint    int64                           `json:"qrPoint"`
	Items      []flyerdomain.CreateItemRequest `json:"items"`
}

type replaceQuizzesRequest struct {
	Quizzes []flyerdomain.QuizInput `json:"quizzes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListFlyers(c *gin.Context) {
	var query listFlyersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.listFlyers(c, flyerdomain.ListFlyerRequest{
		Category:   strings.TrimSpace(query.Category),
		Search:     strings.TrimSpace(query.Search),
		Pagination: query.Pagination,
	})
}

func (s *Server) ListBusinessFlyers(c *gin.Context) {
	var query listFlyersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ownerID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	s.listFlyers(c, flyerdomain.ListFlyerRequest{
		Category:      strings.TrimSpace(query.Category),
		Search:        strings.TrimSpace(query.Search),
		Status:        strings.TrimSpace(query.Status),
		OwnerID:       &ownerID,
		IncludeHidden: true,
		Pagination:    query.Pagination,
	})
}

func (s *Server) ListAllFlyers(c *gin.Context) {
	var query listFlyersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.listFlyers(c, flyerdomain.ListFlyerRequest{
		Category:      strings.TrimSpace(query.Category),
		Search:        strings.TrimSpace(query.Search),
		Status:        strings.TrimSpace(query.Status),
		IncludeHidden: true,
		Pagination:    query.Pagination,
	})
}

func (s *Server) listFlyers(c *gin.Context, req flyerdomain.ListFlyerRequest) {
	resp, err := s.flyerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// GetFlyer counts a view. Hidden flyers are only visible to their owner.
func (s *Server) GetFlyer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	flyer, err := s.flyerSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if flyer.Status != flyerdomain.StatusApproved {
		userID, _ := actingUserID(c)
		principal, _ := principalFromContext(c)
		if !principal.IsAdmin() && !flyer.OwnedBy(userID) {
			AbortWithError(c, flyerdomain.ErrFlyerNotFound)
			return
		}
		respond(c, http.StatusOK, flyer)
		return
	}

	viewed, err := s.flyerSvc.View(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, viewed)
}

// CreateFlyer creates a business funded flyer, or a platform funded one when
// called with an admin token.
func (s *Server) CreateFlyer(c *gin.Context) {
	var req createFlyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var ownerID *snowflake.ID
	if userID, ok := actingUserID(c); ok {
		ownerID = &userID
	}

	flyer, err := s.flyerSvc.Create(c.Request.Context(), flyerdomain.CreateFlyerRequest{
		OwnerID:    ownerID,
		StoreName:  req.StoreName,
		Category:   req.Category,
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		Tags:       req.Tags,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		SharePoint: req.SharePoint,
		QRPoint:    req.QRPoint,
		Items:      req.Items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, flyer)
}

func (s *Server) GenerateQRCode(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.flyerSvc.GenerateQRCode(c.Request.Context(), userID, flyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) GetQRCode(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.flyerSvc.GetQRCode(c.Request.Context(), userID, flyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) UpdateFlyer(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createFlyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	flyer, err := s.flyerSvc.Update(c.Request.Context(), flyerdomain.UpdateFlyerRequest{
		ActorID:    userID,
		FlyerID:    flyerID,
		StoreName:  req.StoreName,
		Category:   req.Category,
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		Tags:       req.Tags,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		SharePoint: req.SharePoint,
		QRPoint:    req.QRPoint,
		Items:      req.Items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, flyer)
}

func (s *Server) DeleteFlyer(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.flyerSvc.Delete(c.Request.Context(), userID, flyerID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListOwnerQuizzes shows the owner every quiz of a flyer with its answer.
func (s *Server) ListOwnerQuizzes(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quizzes, err := s.flyerSvc.OwnerQuizzes(c.Request.Context(), userID, flyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

func (s *Server) ReplaceQuizzes(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req replaceQuizzesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quizzes, err := s.flyerSvc.ReplaceQuizzes(c.Request.Context(), flyerdomain.ReplaceQuizzesRequest{
		ActorID: userID,
		FlyerID: flyerID,
		Quizzes: req.Quizzes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

func (s *Server) UpdateFlyerStatus(c *gin.Context) {
	flyerID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	flyer, err := s.flyerSvc.SetStatus(ctx, flyerID, strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionFlyerStatus,
		TargetType: auditdomain.TargetFlyer,
		TargetID:   flyer.ID.String(),
		Metadata:   map[string]any{"status": string(flyer.Status)},
	})

	respond(c, http.StatusOK, flyer)
}
