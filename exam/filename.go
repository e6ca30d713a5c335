package exam

import "github.com/knilesh2212/exam-paper-saas/models"

// ExportFilename returns "{subject}_{date}.pdf", with "Exam" standing in for
// an empty subject. Values are used as-is.
func ExportFilename(meta models.ExamMeta) string {
	subject := meta.Subject
	if subject == "" {
		subject = "Exam"
	}
	return subject + "_" + meta.Date + ".pdf"
}
