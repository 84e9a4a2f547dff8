package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/smallbiznis/flyerpoint/internal/budget/domain"
)

type chargePointsRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) ChargePoints(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req chargePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.budgetSvc.Charge(c.Request.Context(), budgetdomain.ChargeRequest{
		UserID: userID,
		Amount: req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (s *Server) ChargeHistory(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	charges, err := s.budgetSvc.History(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"charges": charges})
}

func (s *Server) BusinessStats(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	stats, err := s.budgetSvc.Stats(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, stats)
}
