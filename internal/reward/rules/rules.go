// Package rules decides reward amounts and who funds them. It performs no
// I/O; callers load the flyer, quiz and accounts and act on the Decision.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	"github.com/smallbiznis/flyerpoint/internal/reward/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
)

// CheckEarner rejects accounts that may not receive reward payouts.
func CheckEarner(user userdomain.User) error {
	if user.IsBusiness() {
		return domain.ErrBusinessCannotEarn
	}
	if !user.IsActive() {
		return userdomain.ErrUserSuspended
	}
	return nil
}

// CheckFlyer rejects flyers that are hidden from users.
func CheckFlyer(flyer flyerdomain.Flyer) error {
	if flyer.Status != flyerdomain.StatusApproved {
		return domain.ErrFlyerUnavailable
	}
	return nil
}

// IsExpired reports whether the whole of the validUntil day has passed in loc.
// Unparseable dates never expire.
func IsExpired(validUntil string, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(flyerdomain.DateLayout, strings.TrimSpace(validUntil), loc)
	if err != nil {
		return false
	}
	return !now.Before(day.AddDate(0, 0, 1))
}

// VisitDay is the calendar day a visit at now counts against.
func VisitDay(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(flyerdomain.DateLayout)
}

func EvaluateShare(flyer flyerdomain.Flyer, now time.Time, loc *time.Location) (domain.Decision, error) {
	if IsExpired(flyer.ValidUntil, now, loc) {
		return domain.Decision{}, domain.ErrFlyerExpired
	}
	return domain.Decision{
		EventType:   domain.EventTypeShare,
		Amount:      max(flyer.SharePoint, 0),
		FundedBy:    funder(flyer),
		Description: fmt.Sprintf("Flyer share reward (%s)", flyer.StoreName),
	}, nil
}

// EvaluateQuiz pays quiz.Point for a correct answer and nothing otherwise.
func EvaluateQuiz(flyer flyerdomain.Flyer, quiz flyerdomain.Quiz, submitted string) (domain.Decision, bool) {
	correct := AnswersMatch(submitted, quiz.Answer)
	decision := domain.Decision{
		EventType:   domain.EventTypeQuiz,
		FundedBy:    funder(flyer),
		Description: fmt.Sprintf("Quiz reward (%s)", flyer.StoreName),
	}
	if correct {
		decision.Amount = max(quiz.Point, 0)
	}
	return decision, correct
}

// EvaluateVisit pays the flyer's QR point, or defaultPoint when none is set.
func EvaluateVisit(flyer flyerdomain.Flyer, defaultPoint int64) domain.Decision {
	amount := flyer.QRPoint
	if amount <= 0 {
		amount = defaultPoint
	}
	return domain.Decision{
		EventType:   domain.EventTypeVisit,
		Amount:      max(amount, 0),
		FundedBy:    funder(flyer),
		Description: fmt.Sprintf("Store visit reward (%s)", flyer.StoreName),
	}
}

// CheckBudget is the advisory budget test done before any write.
func CheckBudget(decision domain.Decision, ownerBudget int64) error {
	if decision.IsBusinessFunded() && decision.Amount > 0 && ownerBudget < decision.Amount {
		return domain.ErrBudgetExhausted
	}
	return nil
}

// AnswersMatch compares answers ignoring surrounding space and case. Inner
// characters are kept, so "22,000" does not match "22000".
func AnswersMatch(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}

func funder(flyer flyerdomain.Flyer) snowflake.ID {
	if flyer.IsBusinessFunded() {
		return *flyer.OwnerID
	}
	return 0
}
