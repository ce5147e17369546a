package config

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tlbgroup/mkitchen-backend/appctx"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// LogError emits a structured error entry. The request's correlation id is
// attached when the context carries one, so handler-scoped failures are
// traceable across log lines.
func LogError(ctx context.Context, logger *logrus.Logger, moduleName string, funcName string, logContext string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  logContext,
	}
	if data != nil {
		fields["data"] = data
	}
	if ctx != nil {
		if cid, ok := appctx.GetString(ctx, appctx.ContextKeyCorrelationId); ok {
			fields["correlation_id"] = cid
		}
	}
	logger.WithFields(fields).Error(err.Error())
}
