package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/config"
	"github.com/knilesh2212/exam-paper-saas/handlers"
	"github.com/knilesh2212/exam-paper-saas/middleware"
	"github.com/knilesh2212/exam-paper-saas/render"
	"github.com/knilesh2212/exam-paper-saas/store"
)

func newRouter(cfg *config.Config, st *store.Store, zl *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(zl))

	// Preview page template
	html, err := render.NewHTML()
	if err != nil {
		return nil, err
	}
	router.HTMLRender = html.Templates()

	margin := renderMargin(cfg)
	pdf := render.PDF{Log: zl}

	router.GET("/healthz", handlers.Healthz())

	// API Routes (version 1)
	apiV1 := router.Group("/api/v1")
	if cfg.Auth.Enabled {
		apiV1.Use(middleware.AuthMiddleware(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, zl))
	}
	{
		apiV1.GET("/exam", handlers.GetExam(st))
		apiV1.GET("/exam/layout", handlers.GetLayout(st))
		apiV1.GET("/exam/stats", handlers.GetStats(st))
		apiV1.GET("/exam/export.pdf", handlers.ExportPDF(st, pdf, margin, zl))
		apiV1.GET("/exam/preview", handlers.Preview(st, margin))
		apiV1.GET("/exam/export.yaml", handlers.ExportYAML(st, zl))
	}

	// Mutations need an editor when auth is on
	edit := apiV1.Group("/exam")
	if cfg.Auth.Enabled {
		edit.Use(middleware.RoleCheckMiddleware(middleware.EditorRoles))
	}
	{
		edit.PATCH("/meta", handlers.PatchMeta(st, zl))
		edit.PATCH("/style", handlers.PatchStyle(st, zl))
		edit.POST("/sections", handlers.AddSection(st, zl))
		edit.PATCH("/sections/:id", handlers.UpdateSection(st, zl))
		edit.DELETE("/sections/:id", handlers.DeleteSection(st, zl))
		edit.POST("/questions", handlers.AddQuestion(st, zl))
		edit.PUT("/questions/order", handlers.ReorderQuestions(st, zl))
		edit.PATCH("/questions/:id", handlers.UpdateQuestion(st, zl))
		edit.DELETE("/questions/:id", handlers.DeleteQuestion(st, zl))
		edit.POST("/questions/:id/duplicate", handlers.DuplicateQuestion(st, zl))
		edit.POST("/reset", handlers.ResetExam(st, zl))
		edit.POST("/import", handlers.ImportYAML(st, zl))
	}
	return router, nil
}
