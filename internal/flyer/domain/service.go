package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

type CreateItemRequest struct {
	Name          string `json:"name"`
	OriginalPrice int64  `json:"originalPrice"`
	SalePrice     int64  `json:"salePrice"`
}

type CreateFlyerRequest struct {
	OwnerID    *snowflake.ID
	StoreName  string
	Category   string
	Title      string
	Subtitle   string
	Tags       []string
	ValidFrom  string
	ValidUntil string
	SharePoint int64
	QRPoint    int64
	Items      []CreateItemRequest
}

// UpdateFlyerRequest rewrites a flyer's details. Items are replaced only when
// the request carries some.
type UpdateFlyerRequest struct {
	ActorID    snowflake.ID
	FlyerID    snowflake.ID
	StoreName  string
	Category   string
	Title      string
	Subtitle   string
	Tags       []string
	ValidFrom  string
	ValidUntil string
	SharePoint int64
	QRPoint    int64
	Items      []CreateItemRequest
}

type ListFlyerRequest struct {
	Category string
	Search   string
	OwnerID  *snowflake.ID
	Status   string
	// IncludeHidden lists pending and blocked flyers too (admin and owner views).
	IncludeHidden bool
	pagination.Pagination
}

type ListFlyerFilter struct {
	Category string
	Search   string
	OwnerID  *snowflake.ID
	Statuses []Status
}

type ListFlyerResponse struct {
	pagination.PageInfo
	Flyers []Flyer `json:"flyers"`
}

type QuizInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Point    int64  `json:"point"`
}

type ReplaceQuizzesRequest struct {
	ActorID snowflake.ID
	FlyerID snowflake.ID
	Quizzes []QuizInput
}

type QRCodeResult struct {
	FlyerID   snowflake.ID `json:"flyerId"`
	QRCode    string       `json:"qrCode"`
	QRPoint   int64        `json:"qrPoint"`
	StoreName string       `json:"storeName,omitempty"`
}

// OwnerQuiz is the owner's view of a quiz and includes the answer.
type OwnerQuiz struct {
	ID       snowflake.ID `json:"id"`
	FlyerID  snowflake.ID `json:"flyerId"`
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Point    int64        `json:"point"`
}

type Service interface {
	Create(ctx context.Context, req CreateFlyerRequest) (Flyer, error)
	Get(ctx context.Context, id snowflake.ID) (Flyer, error)
	View(ctx context.Context, id snowflake.ID) (Flyer, error)
	List(ctx context.Context, req ListFlyerRequest) (ListFlyerResponse, error)
	SetStatus(ctx context.Context, id snowflake.ID, status string) (Flyer, error)
	GenerateQRCode(ctx context.Context, actorID, flyerID snowflake.ID) (QRCodeResult, error)
	ReplaceQuizzes(ctx context.Context, req ReplaceQuizzesRequest) ([]Quiz, error)
	ListQuizzes(ctx context.Context, flyerID snowflake.ID) ([]Quiz, error)
	OwnerQuizzes(ctx context.Context, actorID, flyerID snowflake.ID) ([]OwnerQuiz, error)
	GetQRCode(ctx context.Context, actorID, flyerID snowflake.ID) (QRCodeResult, error)
	Update(ctx context.Context, req UpdateFlyerRequest) (Flyer, error)
	Delete(ctx context.Context, actorID, flyerID snowflake.ID) error
}

var (
	ErrFlyerNotFound    = errs.New(errs.NotFound, "flyer_not_found", "flyer not found")
	ErrQuizNotFound     = errs.New(errs.NotFound, "quiz_not_found", "quiz not found")
	ErrInvalidQRCode    = errs.New(errs.NotFound, "invalid_qr_code", "invalid QR code")
	ErrInvalidFlyer     = errs.New(errs.InvalidArgument, "invalid_flyer", "store name, title, category and dates are required")
	ErrInvalidItems     = errs.New(errs.InvalidArgument, "invalid_items", "at least one item with a name is required")
	ErrInvalidDateRange = errs.New(errs.InvalidArgument, "invalid_date_range", "dates must be YYYY-MM-DD and validFrom must not be after validUntil")
	ErrInvalidPoints    = errs.New(errs.InvalidArgument, "invalid_points", "reward points cannot be negative")
	ErrInvalidStatus    = errs.New(errs.InvalidArgument, "invalid_status", "status must be approved, pending or blocked")
	ErrInvalidQuizCount = errs.New(errs.InvalidArgument, "invalid_quiz_count", "a flyer needs between 3 and 5 quizzes")
	ErrInvalidQuizPoint = errs.New(errs.InvalidArgument, "invalid_quiz_point", "quiz points must be between 10 and 50")
	ErrInvalidQuiz      = errs.New(errs.InvalidArgument, "invalid_quiz", "every quiz needs a question and an answer")
	ErrNotFlyerOwner    = errs.New(errs.Forbidden, "not_flyer_owner", "only the flyer owner can do this")
	ErrQRCodeMissing    = errs.New(errs.NotFound, "qr_code_missing", "no QR code has been issued for this flyer")
	ErrFlyerHasRewards  = errs.New(errs.Conflict, "flyer_has_rewards", "a flyer that already paid out rewards cannot be deleted")
	ErrOwnerNotBusiness = errs.New(errs.InvalidArgument, "owner_not_business", "flyer owner must be a business account")
)
