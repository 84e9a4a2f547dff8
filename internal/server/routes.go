package server

import (
	"github.com/smallbiznis/flyerpoint/internal/authorization"
)

func RegisterRoutes(s *Server) {
	r := s.engine

	auth := r.Group("/auth")
	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)

	r.POST("/admin/login", s.AdminLogin)

	api := r.Group("/api", s.AuthRequired())
	api.GET("/me", s.Me)
	api.PATCH("/me", s.UpdateMe)

	api.GET("/flyers", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerView), s.ListFlyers)
	api.GET("/flyers/:id", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerView), s.GetFlyer)
	api.GET("/flyers/:id/quiz", s.authorize(authorization.ObjectReward, authorization.ActionRewardEarn), s.NextQuiz)

	earn := api.Group("", s.authorize(authorization.ObjectReward, authorization.ActionRewardEarn), s.RewardRateLimit())
	earn.POST("/share", s.RecordShare)
	earn.POST("/quiz/attempt", s.RecordQuizAttempt)
	earn.POST("/qr/verify", s.VerifyQRCode)

	api.POST("/points/use", s.authorize(authorization.ObjectPoints, authorization.ActionPointsUse), s.UsePoints)
	api.GET("/points/history", s.authorize(authorization.ObjectPoints, authorization.ActionPointsView), s.PointsHistory)
	api.GET("/shares/history", s.authorize(authorization.ObjectPoints, authorization.ActionPointsView), s.ShareHistory)
	api.GET("/quiz/history", s.authorize(authorization.ObjectPoints, authorization.ActionPointsView), s.QuizHistory)
	api.GET("/visits/history", s.authorize(authorization.ObjectPoints, authorization.ActionPointsView), s.VisitHistory)
	api.POST("/withdrawals", s.authorize(authorization.ObjectWithdrawal, authorization.ActionWithdrawalRequest), s.RequestWithdrawal)
	api.GET("/withdrawals", s.authorize(authorization.ObjectWithdrawal, authorization.ActionWithdrawalRequest), s.ListMyWithdrawals)

	business := api.Group("/business")
	business.GET("/flyers", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerCreate), s.ListBusinessFlyers)
	business.POST("/flyers", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerCreate), s.CreateFlyer)
	business.PUT("/flyers/:id", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.UpdateFlyer)
	business.DELETE("/flyers/:id", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.DeleteFlyer)
	business.GET("/flyers/:id/qr", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.GetQRCode)
	business.POST("/flyers/:id/qr", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.GenerateQRCode)
	business.GET("/flyers/:id/quizzes", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.ListOwnerQuizzes)
	business.PUT("/flyers/:id/quizzes", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerManage), s.ReplaceQuizzes)
	business.POST("/charge-points", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetCharge), s.ChargePoints)
	business.GET("/charge-history", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.ChargeHistory)
	business.GET("/stats", s.authorize(authorization.ObjectBudget, authorization.ActionBudgetView), s.BusinessStats)

	admin := r.Group("/admin", s.AuthRequired())
	admin.GET("/dashboard", s.authorize(authorization.ObjectDashboard, authorization.ActionDashboardView), s.Dashboard)
	admin.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	admin.PATCH("/users/:id/status", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.UpdateUserStatus)
	admin.GET("/users/:id/reconcile", s.authorize(authorization.ObjectLedger, authorization.ActionLedgerReconcile), s.ReconcileUser)
	admin.PATCH("/business/:id/approve", s.authorize(authorization.ObjectUser, authorization.ActionBusinessApprove), s.ApproveBusiness)
	admin.GET("/flyers", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerModerate), s.ListAllFlyers)
	admin.PATCH("/flyers/:id/status", s.authorize(authorization.ObjectFlyer, authorization.ActionFlyerModerate), s.UpdateFlyerStatus)
	admin.GET("/withdrawals", s.authorize(authorization.ObjectWithdrawal, authorization.ActionWithdrawalView), s.ListWithdrawals)
	admin.PATCH("/withdrawals/:id/status", s.authorize(authorization.ObjectWithdrawal, authorization.ActionWithdrawalProcess), s.ProcessWithdrawal)
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
