package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/exam"
	"github.com/knilesh2212/exam-paper-saas/ingestion"
	"github.com/knilesh2212/exam-paper-saas/render"
	"github.com/knilesh2212/exam-paper-saas/store"
)

// MaxImportBytes bounds the size of an uploaded YAML document.
const MaxImportBytes = 1 << 20

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

// ExportPDF renders the exam and sends it as a download named after the
// subject and date.
// GET /api/v1/exam/export.pdf
func ExportPDF(st *store.Store, renderer render.Renderer, marginMM float64, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		snap := st.Snapshot()
		blocks := exam.ComposeSnapshot(snap)
		var buf bytes.Buffer
		res, err := renderer.Render(&buf, blocks, render.GeometryFromStyle(snap.Style, marginMM))
		if err != nil {
			log.Error("pdf export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render exam"})
			return
		}
		name := exam.ExportFilename(snap.Meta)
		log.Info("exported pdf", zap.String("file", name), zap.Int("pages", res.Pages), zap.Int("bytes", buf.Len()))
		c.Header("Content-Disposition", attachment(name))
		c.Data(http.StatusOK, res.ContentType, buf.Bytes())
	}
}

// Preview renders the exam as a printable HTML page.
// GET /api/v1/exam/preview
func Preview(st *store.Store, marginMM float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := st.Snapshot()
		title := strings.TrimSuffix(exam.ExportFilename(snap.Meta), ".pdf")
		geom := render.GeometryFromStyle(snap.Style, marginMM)
		c.HTML(http.StatusOK, render.PreviewTemplate, render.NewPreview(title, exam.ComposeSnapshot(snap), geom))
	}
}

// ExportYAML sends the exam as a YAML document.
// GET /api/v1/exam/export.yaml
func ExportYAML(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		snap := st.Snapshot()
		var buf bytes.Buffer
		if err := ingestion.Export(&buf, snap); err != nil {
			log.Error("yaml export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export exam"})
			return
		}
		name := strings.TrimSuffix(exam.ExportFilename(snap.Meta), ".pdf") + ".yaml"
		c.Header("Content-Disposition", attachment(name))
		c.Data(http.StatusOK, "application/yaml", buf.Bytes())
	}
}

// ImportYAML replaces the exam with an uploaded YAML document.
// POST /api/v1/exam/import
func ImportYAML(st *store.Store, log *zap.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		snap, err := ingestion.Import(bytes.NewReader(data), ingestion.ImportOptions{})
		if err != nil {
			respondError(c, log, err)
			return
		}
		if err := st.Replace(c.Request.Context(), snap); err != nil {
			respondError(c, log, err)
			return
		}
		log.Info("imported exam",
			zap.Int("sections", len(snap.Sections)),
			zap.Int("questions", len(snap.Questions)))
		c.JSON(http.StatusOK, st.Snapshot())
	}
}
