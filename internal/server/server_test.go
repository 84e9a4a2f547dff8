package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/authorization"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	"github.com/smallbiznis/flyerpoint/internal/ratelimit"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeAuthService struct {
	principals map[string]authdomain.Principal
}

func (f *fakeAuthService) Register(ctx context.Context, req userdomain.RegisterRequest) (authdomain.Session, error) {
	return authdomain.Session{}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req userdomain.LoginRequest) (authdomain.Session, error) {
	return authdomain.Session{}, nil
}

func (f *fakeAuthService) LoginFederated(ctx context.Context, identity userdomain.FederatedIdentity) (authdomain.Session, error) {
	return authdomain.Session{}, nil
}

func (f *fakeAuthService) AdminLogin(ctx context.Context, password string) (authdomain.Token, error) {
	return authdomain.Token{}, authdomain.ErrInvalidCredentials
}

func (f *fakeAuthService) Verify(ctx context.Context, token string) (authdomain.Principal, error) {
	principal, ok := f.principals[token]
	if !ok {
		return authdomain.Principal{}, authdomain.ErrInvalidToken
	}
	return principal, nil
}

type fakeAuthzService struct {
	deny map[string]bool
}

func (f *fakeAuthzService) Authorize(ctx context.Context, principal authdomain.Principal, object, action string) error {
	if f.deny[principal.Role+"|"+action] {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeRewardService struct {
	lastShare       rewarddomain.RecordShareRequest
	shareErr        error
	lastHistoryUser snowflake.ID
}

func (f *fakeRewardService) RecordShare(ctx context.Context, req rewarddomain.RecordShareRequest) (rewarddomain.ShareResult, error) {
	f.lastShare = req
	if f.shareErr != nil {
		return rewarddomain.ShareResult{}, f.shareErr
	}
	return rewarddomain.ShareResult{EarnedPoints: 50, TotalPoints: 150}, nil
}

func (f *fakeRewardService) RecordQuizAttempt(ctx context.Context, req rewarddomain.RecordQuizRequest) (rewarddomain.QuizResult, error) {
	return rewarddomain.QuizResult{}, nil
}

func (f *fakeRewardService) RecordVisit(ctx context.Context, req rewarddomain.RecordVisitRequest) (rewarddomain.VisitResult, error) {
	return rewarddomain.VisitResult{}, nil
}

func (f *fakeRewardService) UsePoints(ctx context.Context, req rewarddomain.UsePointsRequest) (rewarddomain.UseResult, error) {
	return rewarddomain.UseResult{}, ledgerdomain.ErrInsufficientBalance.
		WithMessage("insufficient points (balance: 10)").
		WithDetails(map[string]any{"balance": 10, "requested": req.Amount})
}

func (f *fakeRewardService) NextQuiz(ctx context.Context, userID, flyerID snowflake.ID) (rewarddomain.NextQuiz, error) {
	return rewarddomain.NextQuiz{}, nil
}

func (f *fakeRewardService) ShareHistory(ctx context.Context, userID snowflake.ID) ([]rewarddomain.ShareHistoryItem, error) {
	f.lastHistoryUser = userID
	return []rewarddomain.ShareHistoryItem{{ID: 1, FlyerID: 7, StoreName: "Happy Mart", FlyerTitle: "Spring Sale", Points: 10}}, nil
}

func (f *fakeRewardService) QuizHistory(ctx context.Context, userID snowflake.ID) ([]rewarddomain.QuizHistoryItem, error) {
	f.lastHistoryUser = userID
	return []rewarddomain.QuizHistoryItem{}, nil
}

func (f *fakeRewardService) VisitHistory(ctx context.Context, userID snowflake.ID) ([]rewarddomain.VisitHistoryItem, error) {
	f.lastHistoryUser = userID
	return []rewarddomain.VisitHistoryItem{}, nil
}

// fakeFlyerService implements the owner endpoints. Other methods are unused
// by these tests.
type fakeFlyerService struct {
	flyerdomain.Service
	ownerID   snowflake.ID
	deleted   []snowflake.ID
	deleteErr error
	lastEdit  flyerdomain.UpdateFlyerRequest
}

func (f *fakeFlyerService) owns(actorID snowflake.ID) error {
	if actorID != f.ownerID {
		return flyerdomain.ErrNotFlyerOwner
	}
	return nil
}

func (f *fakeFlyerService) OwnerQuizzes(ctx context.Context, actorID, flyerID snowflake.ID) ([]flyerdomain.OwnerQuiz, error) {
	if err := f.owns(actorID); err != nil {
		return nil, err
	}
	return []flyerdomain.OwnerQuiz{{ID: 1, FlyerID: flyerID, Question: "q", Answer: "a", Point: 10}}, nil
}

func (f *fakeFlyerService) GetQRCode(ctx context.Context, actorID, flyerID snowflake.ID) (flyerdomain.QRCodeResult, error) {
	if err := f.owns(actorID); err != nil {
		return flyerdomain.QRCodeResult{}, err
	}
	return flyerdomain.QRCodeResult{FlyerID: flyerID, QRCode: "qr-1", QRPoint: 100, StoreName: "Happy Mart"}, nil
}

func (f *fakeFlyerService) Update(ctx context.Context, req flyerdomain.UpdateFlyerRequest) (flyerdomain.Flyer, error) {
	if err := f.owns(req.ActorID); err != nil {
		return flyerdomain.Flyer{}, err
	}
	f.lastEdit = req
	return flyerdomain.Flyer{ID: req.FlyerID, Title: req.Title}, nil
}

func (f *fakeFlyerService) Delete(ctx context.Context, actorID, flyerID snowflake.ID) error {
	if err := f.owns(actorID); err != nil {
		return err
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, flyerID)
	return nil
}

type fakeLimiter struct {
	result *ratelimit.RateLimitResult
	err    error
}

func (f *fakeLimiter) AllowUser(ctx context.Context, userID string) (*ratelimit.RateLimitResult, error) {
	return f.result, f.err
}

const (
	userToken     = "user-token"
	businessToken = "business-token"
)

func newTestServer(t *testing.T, reward *fakeRewardService, limiter rewardLimiter) *gin.Engine {
	t.Helper()
	return newTestServerWithFlyers(t, reward, &fakeFlyerService{}, limiter)
}

func newTestServerWithFlyers(t *testing.T, reward *fakeRewardService, flyers *fakeFlyerService, limiter rewardLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine: engine,
		log:    zap.NewNop(),
		authSvc: &fakeAuthService{principals: map[string]authdomain.Principal{
			userToken:     {Subject: "42", UserID: 42, Role: authdomain.RoleUser},
			businessToken: {Subject: "77", UserID: 77, Role: authdomain.RoleBusiness},
		}},
		authzSvc: &fakeAuthzService{deny: map[string]bool{
			authdomain.RoleBusiness + "|" + authorization.ActionRewardEarn: true,
		}},
		flyerSvc:  flyers,
		rewardSvc: reward,
		limiter:   limiter,
	}
	RegisterRoutes(s)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestShareUsesTokenIdentity(t *testing.T) {
	reward := &fakeRewardService{}
	engine := newTestServer(t, reward, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{
		"flyerId": "7",
		"userId":  "999",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(42), reward.lastShare.UserID)
	assert.Equal(t, snowflake.ID(7), reward.lastShare.FlyerID)

	var resp struct {
		Data rewarddomain.ShareResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(50), resp.Data.EarnedPoints)
	assert.Equal(t, int64(150), resp.Data.TotalPoints)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	engine := newTestServer(t, &fakeRewardService{}, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", "", map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/share", "bogus", map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decodeError(t, rec).Code)
}

func TestBusinessCannotEarnAtTransport(t *testing.T) {
	reward := &fakeRewardService{}
	engine := newTestServer(t, reward, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", businessToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, reward.lastShare.UserID)
}

func TestInvalidFlyerIDIsValidationError(t *testing.T) {
	engine := newTestServer(t, &fakeRewardService{}, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "flyerId", payload.Errors[0].Field)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	reward := &fakeRewardService{shareErr: rewarddomain.ErrBudgetExhausted}
	engine := newTestServer(t, reward, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "budget_exhausted", payload.Code)
	assert.Equal(t, "this offer's funds are depleted", payload.Message)

	reward.shareErr = rewarddomain.ErrAlreadyRewarded
	rec = doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already rewarded", decodeError(t, rec).Message)
}

func TestInsufficientBalanceCarriesDetails(t *testing.T) {
	engine := newTestServer(t, &fakeRewardService{}, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/points/use", userToken, map[string]any{"amount": 30})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "insufficient_balance", payload.Code)
	assert.Equal(t, "insufficient points (balance: 10)", payload.Message)
	assert.EqualValues(t, 10, payload.Details["balance"])
	assert.EqualValues(t, 30, payload.Details["requested"])
}

func TestRewardRateLimitDenies(t *testing.T) {
	limiter := &fakeLimiter{result: &ratelimit.RateLimitResult{Allowed: false, RetryAfter: 1500 * time.Millisecond}}
	reward := &fakeRewardService{}
	engine := newTestServer(t, reward, limiter)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Code)
	assert.Zero(t, reward.lastShare.UserID)
}

func TestRewardRateLimitBackendFailure(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	engine := newTestServer(t, &fakeRewardService{}, limiter)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNilRewardLimiterAllows(t *testing.T) {
	var limiter *ratelimit.RewardLimiter
	reward := &fakeRewardService{}
	engine := newTestServer(t, reward, limiter)

	rec := doJSON(t, engine, http.MethodPost, "/api/share", userToken, map[string]any{"flyerId": "7"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMapErrorFallbacks(t *testing.T) {
	status, payload := mapError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", payload.Message)

	status, _ = mapError(gorm.ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, payload = mapError(rewarddomain.ErrProcessingFailed)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "processing_failed", payload.Code)

	status, _ = mapError(userdomain.ErrUserSuspended)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = bearerToken("bearer  xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}

func TestRewardHistoriesUseTokenIdentity(t *testing.T) {
	reward := &fakeRewardService{}
	engine := newTestServer(t, reward, nil)

	for _, path := range []string{"/api/shares/history", "/api/quiz/history", "/api/visits/history"} {
		reward.lastHistoryUser = 0
		rec := doJSON(t, engine, http.MethodGet, path, userToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, snowflake.ID(42), reward.lastHistoryUser, path)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/shares/history", userToken, nil)
	var resp struct {
		Data []rewarddomain.ShareHistoryItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Happy Mart", resp.Data[0].StoreName)

	rec = doJSON(t, engine, http.MethodGet, "/api/visits/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnerFlyerEndpoints(t *testing.T) {
	flyers := &fakeFlyerService{ownerID: 77}
	engine := newTestServerWithFlyers(t, &fakeRewardService{}, flyers, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/business/flyers/9/qr", businessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var qr struct {
		Data flyerdomain.QRCodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	assert.Equal(t, "qr-1", qr.Data.QRCode)
	assert.Equal(t, snowflake.ID(9), qr.Data.FlyerID)

	rec = doJSON(t, engine, http.MethodGet, "/api/business/flyers/9/quizzes", businessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quizzes struct {
		Data struct {
			Quizzes []flyerdomain.OwnerQuiz `json:"quizzes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quizzes))
	require.Len(t, quizzes.Data.Quizzes, 1)
	assert.Equal(t, "a", quizzes.Data.Quizzes[0].Answer)

	rec = doJSON(t, engine, http.MethodPut, "/api/business/flyers/9", businessToken, map[string]any{
		"storeName": "Happy Mart", "category": "grocery", "title": "Summer Sale",
		"validFrom": "2025-06-01", "validUntil": "2025-06-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(77), flyers.lastEdit.ActorID)
	assert.Equal(t, snowflake.ID(9), flyers.lastEdit.FlyerID)
	assert.Equal(t, "Summer Sale", flyers.lastEdit.Title)

	rec = doJSON(t, engine, http.MethodDelete, "/api/business/flyers/9", businessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []snowflake.ID{9}, flyers.deleted)
}

func TestOwnerFlyerEndpointsRejectOthers(t *testing.T) {
	flyers := &fakeFlyerService{ownerID: 1}
	engine := newTestServerWithFlyers(t, &fakeRewardService{}, flyers, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/business/flyers/9/qr", businessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_flyer_owner", decodeError(t, rec).Code)

	rec = doJSON(t, engine, http.MethodDelete, "/api/business/flyers/9", businessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, flyers.deleted)

	flyers.ownerID = 77
	flyers.deleteErr = flyerdomain.ErrFlyerHasRewards
	rec = doJSON(t, engine, http.MethodDelete, "/api/business/flyers/9", businessToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "flyer_has_rewards", decodeError(t, rec).Code)
}
