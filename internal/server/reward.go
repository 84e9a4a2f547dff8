package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
)

type shareRequest struct {
	FlyerID string `json:"flyerId"`
}

type quizAttemptRequest struct {
	FlyerID string `json:"flyerId"`
	QuizID  string `json:"quizId"`
	Answer  string `json:"answer"`
}

type qrVerifyRequest struct {
	QRCode string `json:"qrCode"`
}

type usePointsRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) RecordShare(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	flyerID, err := bodyID("flyerId", req.FlyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("reward_event", "share")
	result, err := s.rewardSvc.RecordShare(c.Request.Context(), rewarddomain.RecordShareRequest{
		UserID:  userID,
		FlyerID: flyerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) RecordQuizAttempt(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req quizAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	flyerID, err := bodyID("flyerId", req.FlyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	quizID, err := bodyID("quizId", req.QuizID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		AbortWithError(c, newValidationError("answer", "required", "answer is required"))
		return
	}

	c.Set("reward_event", "quiz")
	result, err := s.rewardSvc.RecordQuizAttempt(c.Request.Context(), rewarddomain.RecordQuizRequest{
		UserID:  userID,
		FlyerID: flyerID,
		QuizID:  quizID,
		Answer:  req.Answer,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) VerifyQRCode(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req qrVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	code := strings.TrimSpace(req.QRCode)
	if code == "" {
		AbortWithError(c, newValidationError("qrCode", "required", "qr code is required"))
		return
	}

	c.Set("reward_event", "visit")
	result, err := s.rewardSvc.RecordVisit(c.Request.Context(), rewarddomain.RecordVisitRequest{
		UserID: userID,
		QRCode: code,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) NextQuiz(c *gin.Context) {
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

	next, err := s.rewardSvc.NextQuiz(c.Request.Context(), userID, flyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, next)
}

func (s *Server) UsePoints(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req usePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.rewardSvc.UsePoints(c.Request.Context(), rewarddomain.UsePointsRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) PointsHistory(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	user, err := s.userSvc.Get(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	history, err := s.ledgerSvc.History(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"points":       user.PointBalance,
		"transactions": history,
	})
}

func (s *Server) ShareHistory(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	history, err := s.rewardSvc.ShareHistory(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, history)
}

func (s *Server) QuizHistory(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	history, err := s.rewardSvc.QuizHistory(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, history)
}

func (s *Server) VisitHistory(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	history, err := s.rewardSvc.VisitHistory(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, history)
}
