package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/james-see/jianpu2midi/pkg/config"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry initialises the Sentry client when a DSN is configured. The
// returned func flushes buffered events and is safe to call either way.
func InitSentry(cfg config.Config) (func(), error) {
	if cfg.SentryDSN == "" {
		logrus.Debug("SENTRY_DSN not set, error reporting disabled")
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "jianpu2midi@" + Version,
	})
	if err != nil {
		return func() {}, fmt.Errorf("failed to initialise sentry: %w", err)
	}
	logrus.WithField("environment", cfg.SentryEnvironment).Info("sentry error reporting enabled")

	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

// sentryMiddleware gives every request its own hub, reports panics before
// re-raising them and reports 5xx responses
func sentryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), hub))

		defer func() {
			if r := recover(); r != nil {
				hub.RecoverWithContext(c.Request.Context(), r)
				panic(r)
			}
		}()

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("path", c.FullPath())
				scope.SetTag("status", fmt.Sprintf("%d", status))
				for _, ginErr := range c.Errors {
					hub.CaptureException(ginErr.Err)
				}
				if len(c.Errors) == 0 {
					hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", c.Request.Method, c.Request.URL.Path, status))
				}
			})
		}
	}
}
