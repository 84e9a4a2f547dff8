package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

type RecordShareRequest struct {
	UserID  snowflake.ID
	FlyerID snowflake.ID
}

type ShareResult struct {
	EarnedPoints int64 `json:"earnedPoints"`
	TotalPoints  int64 `json:"totalPoints"`
}

type RecordQuizRequest struct {
	UserID  snowflake.ID
	FlyerID snowflake.ID
	QuizID  snowflake.ID
	Answer  string
}

type QuizResult struct {
	IsCorrect     bool   `json:"isCorrect"`
	EarnedPoints  int64  `json:"earnedPoints"`
	TotalPoints   int64  `json:"totalPoints"`
	CorrectAnswer string `json:"correctAnswer"`
}

type RecordVisitRequest struct {
	UserID snowflake.ID
	QRCode string
}

type VisitResult struct {
	EarnedPoints int64  `json:"earnedPoints"`
	TotalPoints  int64  `json:"totalPoints"`
	StoreName    string `json:"storeName"`
	FlyerTitle   string `json:"flyerTitle"`
}

type UsePointsRequest struct {
	UserID      snowflake.ID
	Amount      int64
	Description string
}

type UseResult struct {
	UsedPoints   int64 `json:"usedPoints"`
	RemainPoints int64 `json:"remainPoints"`
}

// NextQuiz is the quiz served to a user for a flyer. Quiz is nil once the
// user has answered, since only one attempt per flyer is rewarded.
type NextQuiz struct {
	Attempted bool              `json:"attempted"`
	Quiz      *flyerdomain.Quiz `json:"quiz"`
}

type Service interface {
	RecordShare(ctx context.Context, req RecordShareRequest) (ShareResult, error)
	RecordQuizAttempt(ctx context.Context, req RecordQuizRequest) (QuizResult, error)
	RecordVisit(ctx context.Context, req RecordVisitRequest) (VisitResult, error)
	UsePoints(ctx context.Context, req UsePointsRequest) (UseResult, error)
	NextQuiz(ctx context.Context, userID, flyerID snowflake.ID) (NextQuiz, error)
	ShareHistory(ctx context.Context, userID snowflake.ID) ([]ShareHistoryItem, error)
	QuizHistory(ctx context.Context, userID snowflake.ID) ([]QuizHistoryItem, error)
	VisitHistory(ctx context.Context, userID snowflake.ID) ([]VisitHistoryItem, error)
}

var (
	ErrAlreadyRewarded      = errs.New(errs.Conflict, "already_rewarded", "already rewarded")
	ErrAlreadyRewardedToday = errs.New(errs.Conflict, "already_rewarded_today", "already rewarded today, come back tomorrow")
	ErrBudgetExhausted      = errs.New(errs.ResourceExhausted, "budget_exhausted", "this offer's funds are depleted")
	ErrBusinessCannotEarn   = errs.New(errs.Forbidden, "business_cannot_earn", "business accounts cannot earn points")
	ErrFlyerExpired         = errs.New(errs.InvalidArgument, "flyer_expired", "this flyer has expired")
	ErrFlyerUnavailable     = errs.New(errs.Forbidden, "flyer_unavailable", "this flyer is not available")
	ErrInvalidAmount        = errs.New(errs.InvalidArgument, "invalid_amount", "amount must be a positive number")
	ErrProcessingFailed     = errs.New(errs.Internal, "processing_failed", "could not process the request, please try again")
)
