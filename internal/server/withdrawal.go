package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	settlementdomain "github.com/smallbiznis/flyerpoint/internal/settlement/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
)

type createWithdrawalRequest struct {
	Amount        int64  `json:"amount"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
}

type listWithdrawalsQuery struct {
	pagination.Pagination
	Status string `form:"status"`
	UserID string `form:"user_id"`
}

// processWithdrawalRequest accepts either "decision" or "status" so the
// admin panel can send approved/rejected directly.
type processWithdrawalRequest struct {
	Decision string `json:"decision"`
	Status   string `json:"status"`
}

func (s *Server) RequestWithdrawal(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	withdrawal, err := s.settlementSvc.Request(c.Request.Context(), settlementdomain.CreateWithdrawalRequest{
		UserID:        userID,
		Amount:        req.Amount,
		BankName:      strings.TrimSpace(req.BankName),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		AccountHolder: strings.TrimSpace(req.AccountHolder),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, withdrawal)
}

func (s *Server) ListMyWithdrawals(c *gin.Context) {
	userID, ok := actingUserID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var query listWithdrawalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settlementSvc.List(c.Request.Context(), settlementdomain.ListWithdrawalRequest{
		UserID:     &userID,
		Status:     strings.TrimSpace(query.Status),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListWithdrawals(c *gin.Context) {
	var query listWithdrawalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := optionalID("user_id", query.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.settlementSvc.List(c.Request.Context(), settlementdomain.ListWithdrawalRequest{
		UserID:     userID,
		Status:     strings.TrimSpace(query.Status),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ProcessWithdrawal(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req processWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	decision := strings.TrimSpace(req.Decision)
	if decision == "" {
		decision = strings.TrimSpace(req.Status)
	}

	result, err := s.settlementSvc.Process(c.Request.Context(), settlementdomain.ProcessRequest{
		WithdrawalID: id,
		Decision:     decision,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}
