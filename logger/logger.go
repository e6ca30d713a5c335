package logger

import (
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/config"
)

// New returns a JSON production logger when Env is "production" and a
// human-readable development logger otherwise.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Env == "production" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}
