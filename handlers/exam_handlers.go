package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/exam"
	"github.com/knilesh2212/exam-paper-saas/ingestion"
	"github.com/knilesh2212/exam-paper-saas/middleware"
	"github.com/knilesh2212/exam-paper-saas/models"
	"github.com/knilesh2212/exam-paper-saas/store"
)

// respondError maps store and ingestion errors to HTTP responses. Anything
// unrecognised is a persistence or rendering failure.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrSectionNotFound), errors.Is(err, store.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrLastSection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrEmptyQuestionText), errors.Is(err, store.ErrInvalidOrder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ingestion.ErrInvalidDocument), errors.Is(err, models.ErrInvalidStyle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update exam"})
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Healthz reports liveness.
// GET /healthz
func Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GetExam returns the whole exam.
// GET /api/v1/exam
func GetExam(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, st.Snapshot())
	}
}

// PatchMeta merges metadata fields.
// PATCH /api/v1/exam/meta
func PatchMeta(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.MetaPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		meta, err := st.SetMeta(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

// PatchStyle merges style fields.
// PATCH /api/v1/exam/style
func PatchStyle(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.StylePatch
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		style, err := st.SetStyle(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, style)
	}
}

// AddSection appends an empty section.
// POST /api/v1/exam/sections
func AddSection(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		sec, err := st.AddSection(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, sec)
	}
}

// UpdateSection changes a section's title or instructions.
// PATCH /api/v1/exam/sections/:id
func UpdateSection(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.SectionPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sec, err := st.UpdateSection(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, sec)
	}
}

// DeleteSection removes a section, moving its questions to the first
// remaining one.
// DELETE /api/v1/exam/sections/:id
func DeleteSection(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		if err := st.RemoveSection(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AddQuestion appends a question to a section, the first one by default.
// POST /api/v1/exam/questions
func AddQuestion(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.AddQuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q, err := st.AddQuestion(c.Request.Context(), req.QuestionInput, req.SectionID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, q)
	}
}

// UpdateQuestion merges question fields.
// PATCH /api/v1/exam/questions/:id
func UpdateQuestion(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.QuestionPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q, err := st.UpdateQuestion(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// DeleteQuestion removes a question.
// DELETE /api/v1/exam/questions/:id
func DeleteQuestion(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		if err := st.RemoveQuestion(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DuplicateQuestion appends a copy of a question.
// POST /api/v1/exam/questions/:id/duplicate
func DuplicateQuestion(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		q, err := st.DuplicateQuestion(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, q)
	}
}

// ReorderQuestions sets the question order. The body must list every
// question id exactly once.
// PUT /api/v1/exam/questions/order
func ReorderQuestions(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		var req models.ReorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := st.ReorderQuestions(c.Request.Context(), req.IDs); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st.Snapshot().Questions)
	}
}

// ResetExam restores the default exam.
// POST /api/v1/exam/reset
func ResetExam(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		if err := st.ResetAll(c.Request.Context()); err != nil {
			respondError(c, log, err)
			return
		}
		log.Info("exam reset", zap.String("user", c.GetString(middleware.ContextUserEmail)))
		c.JSON(http.StatusOK, st.Snapshot())
	}
}

// GetLayout returns the composed block list.
// GET /api/v1/exam/layout
func GetLayout(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, exam.Layout(exam.ComposeSnapshot(st.Snapshot())))
	}
}

// GetStats summarises question counts and marks.
// GET /api/v1/exam/stats
func GetStats(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, exam.Summarize(st.Snapshot()))
	}
}
