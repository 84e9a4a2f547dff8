package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	"github.com/smallbiznis/flyerpoint/internal/flyer/repository"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	userrepository "github.com/smallbiznis/flyerpoint/internal/user/repository"
	userservice "github.com/smallbiznis/flyerpoint/internal/user/service"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	userSvc userdomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t,
		&userdomain.User{}, &domain.Flyer{}, &domain.FlyerItem{}, &domain.Quiz{},
		&rewarddomain.ShareRecord{}, &rewarddomain.QuizAttempt{}, &rewarddomain.VisitVerification{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC))

	userSvc := userservice.New(userservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: userrepository.Provide(),
	})
	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Policy:  config.NewStaticPolicyHolder(config.DefaultRewardPolicy()),
		Repo:    repository.Provide(),
		UserSvc: userSvc,
	})
	return fixture{db: conn, node: node, svc: svc, userSvc: userSvc}
}

func (f fixture) business(t *testing.T, email string) userdomain.User {
	t.Helper()
	u, err := f.userSvc.Register(context.Background(), userdomain.RegisterRequest{
		Email: email, Password: "secret-1", Nickname: "shop", Role: "business",
	})
	require.NoError(t, err)
	return u
}

func flyerRequest(owner *snowflake.ID) domain.CreateFlyerRequest {
	return domain.CreateFlyerRequest{
		OwnerID:    owner,
		StoreName:  "Happy Mart",
		Category:   "grocery",
		Title:      "Spring Sale",
		Tags:       []string{"fruit", "fruit", " "},
		ValidFrom:  "2025-04-01",
		ValidUntil: "2025-04-30",
		Items:      []domain.CreateItemRequest{{Name: "Apple", OriginalPrice: 3000, SalePrice: 2000}},
	}
}

func TestCreateFlyerDefaults(t *testing.T) {
	f := newFixture(t)
	owner := f.business(t, "shop@example.com")

	flyer, err := f.svc.Create(context.Background(), flyerRequest(&owner.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(10), flyer.SharePoint)
	assert.Equal(t, "happy-mart-spring-sale", flyer.Slug)
	assert.Equal(t, []string{"fruit"}, []string(flyer.Tags))
	assert.True(t, flyer.IsBusinessFunded())

	got, err := f.svc.Get(context.Background(), flyer.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Apple", got.Items[0].Name)
}

func TestCreateFlyerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := flyerRequest(nil)
	req.ValidUntil = "2025-03-01"
	_, err := f.svc.Create(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))

	req = flyerRequest(nil)
	req.Items = nil
	_, err = f.svc.Create(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrInvalidItems))

	consumer, err := f.userSvc.Register(ctx, userdomain.RegisterRequest{Email: "c@example.com", Password: "secret-1", Nickname: "c"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, flyerRequest(&consumer.ID))
	assert.True(t, errors.Is(err, domain.ErrOwnerNotBusiness))
}

func TestGenerateQRCodeOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "owner@example.com")
	other := f.business(t, "other@example.com")

	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	_, err = f.svc.GenerateQRCode(ctx, other.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFlyerOwner))

	qr, err := f.svc.GenerateQRCode(ctx, owner.ID, flyer.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, qr.QRCode)
	assert.Equal(t, int64(100), qr.QRPoint)

	got, err := f.svc.Get(ctx, flyer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.QRCode)
	assert.Equal(t, qr.QRCode, *got.QRCode)
}

func TestReplaceQuizzesBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "quiz@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	two := []domain.QuizInput{{Question: "q1", Answer: "a"}, {Question: "q2", Answer: "b"}}
	_, err = f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: two})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuizCount))

	highPoint := []domain.QuizInput{{Question: "q1", Answer: "a", Point: 60}, {Question: "q2", Answer: "b"}, {Question: "q3", Answer: "c"}}
	_, err = f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: highPoint})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuizPoint))

	valid := []domain.QuizInput{{Question: "q1", Answer: "a", Point: 20}, {Question: "q2", Answer: "b"}, {Question: "q3", Answer: "c", Point: 50}}
	quizzes, err := f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: valid})
	require.NoError(t, err)
	assert.Equal(t, int64(10), quizzes[1].Point)

	// Replacing again keeps exactly the new set.
	_, err = f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: valid})
	require.NoError(t, err)
	listed, err := f.svc.ListQuizzes(ctx, flyer.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestListHidesBlockedFlyers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	visible, err := f.svc.Create(ctx, flyerRequest(nil))
	require.NoError(t, err)
	blocked, err := f.svc.Create(ctx, flyerRequest(nil))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, blocked.ID, "blocked")
	require.NoError(t, err)

	public, err := f.svc.List(ctx, domain.ListFlyerRequest{})
	require.NoError(t, err)
	require.Len(t, public.Flyers, 1)
	assert.Equal(t, visible.ID, public.Flyers[0].ID)

	all, err := f.svc.List(ctx, domain.ListFlyerRequest{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all.Flyers, 2)

	_, err = f.svc.View(ctx, blocked.ID)
	assert.True(t, errors.Is(err, domain.ErrFlyerNotFound))

	viewed, err := f.svc.View(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewed.ViewCount)
}

func TestOwnerQuizzesIncludeAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "answers@example.com")
	other := f.business(t, "nosy@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	_, err = f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: []domain.QuizInput{
		{Question: "q1", Answer: "a"}, {Question: "q2", Answer: "b"}, {Question: "q3", Answer: "c"},
	}})
	require.NoError(t, err)

	_, err = f.svc.OwnerQuizzes(ctx, other.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFlyerOwner))

	quizzes, err := f.svc.OwnerQuizzes(ctx, owner.ID, flyer.ID)
	require.NoError(t, err)
	require.Len(t, quizzes, 3)
	assert.Equal(t, "q1", quizzes[0].Question)
	assert.Equal(t, "a", quizzes[0].Answer)
	assert.Equal(t, "c", quizzes[2].Answer)
}

func TestGetQRCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "qr@example.com")
	other := f.business(t, "qr-other@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	_, err = f.svc.GetQRCode(ctx, owner.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrQRCodeMissing))

	issued, err := f.svc.GenerateQRCode(ctx, owner.ID, flyer.ID)
	require.NoError(t, err)

	_, err = f.svc.GetQRCode(ctx, other.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFlyerOwner))

	got, err := f.svc.GetQRCode(ctx, owner.ID, flyer.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.QRCode, got.QRCode)
	assert.Equal(t, int64(100), got.QRPoint)
	assert.Equal(t, "Happy Mart", got.StoreName)

	_, err = f.svc.GetQRCode(ctx, owner.ID, snowflake.ID(12345))
	assert.True(t, errors.Is(err, domain.ErrFlyerNotFound))
}

func TestUpdateFlyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "update@example.com")
	other := f.business(t, "update-other@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	req := domain.UpdateFlyerRequest{
		ActorID:    owner.ID,
		FlyerID:    flyer.ID,
		StoreName:  "Happy Mart",
		Category:   "grocery",
		Title:      " Summer Sale ",
		Tags:       []string{"melon"},
		ValidFrom:  "2025-06-01",
		ValidUntil: "2025-06-30",
		SharePoint: 30,
		QRPoint:    200,
	}

	bad := req
	bad.ValidUntil = "2025-05-01"
	_, err = f.svc.Update(ctx, bad)
	assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))

	bad = req
	bad.ActorID = other.ID
	_, err = f.svc.Update(ctx, bad)
	assert.True(t, errors.Is(err, domain.ErrNotFlyerOwner))

	// Without items the existing ones stay.
	updated, err := f.svc.Update(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Summer Sale", updated.Title)
	assert.Equal(t, "happy-mart-summer-sale", updated.Slug)
	assert.Equal(t, int64(30), updated.SharePoint)
	assert.Equal(t, int64(200), updated.QRPoint)
	assert.Equal(t, []string{"melon"}, []string(updated.Tags))
	assert.Equal(t, domain.StatusApproved, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Apple", updated.Items[0].Name)

	req.Items = []domain.CreateItemRequest{{Name: "Melon", OriginalPrice: 9000, SalePrice: 7000}, {Name: "Peach", SalePrice: 3000}}
	updated, err = f.svc.Update(ctx, req)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "Melon", updated.Items[0].Name)
	assert.Equal(t, "Peach", updated.Items[1].Name)

	req.Items = []domain.CreateItemRequest{{Name: " "}}
	_, err = f.svc.Update(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrInvalidItems))
}

func TestDeleteFlyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "delete@example.com")
	other := f.business(t, "delete-other@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)
	_, err = f.svc.ReplaceQuizzes(ctx, domain.ReplaceQuizzesRequest{ActorID: owner.ID, FlyerID: flyer.ID, Quizzes: []domain.QuizInput{
		{Question: "q1", Answer: "a"}, {Question: "q2", Answer: "b"}, {Question: "q3", Answer: "c"},
	}})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, other.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFlyerOwner))

	require.NoError(t, f.svc.Delete(ctx, owner.ID, flyer.ID))
	_, err = f.svc.Get(ctx, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrFlyerNotFound))

	var leftover int64
	require.NoError(t, f.db.Model(&domain.Quiz{}).Where("flyer_id = ?", flyer.ID).Count(&leftover).Error)
	assert.Zero(t, leftover)
	require.NoError(t, f.db.Model(&domain.FlyerItem{}).Where("flyer_id = ?", flyer.ID).Count(&leftover).Error)
	assert.Zero(t, leftover)
}

func TestDeleteFlyerWithRewardsIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.business(t, "rewarded@example.com")
	flyer, err := f.svc.Create(ctx, flyerRequest(&owner.ID))
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&rewarddomain.ShareRecord{
		ID:        f.node.Generate(),
		UserID:    snowflake.ID(99),
		FlyerID:   flyer.ID,
		Points:    10,
		CreatedAt: time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC),
	}).Error)

	err = f.svc.Delete(ctx, owner.ID, flyer.ID)
	assert.True(t, errors.Is(err, domain.ErrFlyerHasRewards))

	got, err := f.svc.Get(ctx, flyer.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}
