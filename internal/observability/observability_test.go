package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/urbispulse/internal/config"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/complaints", "GET", 200, time.Millisecond)
		m.RecordError("/complaints", "GET", "NOT_FOUND")
		m.RecordTransition("advance", "Assigned")
		m.RecordSubmission("created")
		m.RecordUpvote(true)
	})
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("fast_track", "In Progress")
	m.RecordTransition("fast_track", "In Progress")
	m.RecordUpvote(true)
	m.RecordUpvote(false)
	m.RecordSubmission("created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("fast_track", "In Progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upvotes.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upvotes.WithLabelValues("removed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("created")))
}

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/complaints/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return apperrors.NewNotFound("complaint", nil)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/complaints/CT-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest("GET", "/complaints/missing", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/complaints/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/complaints/:id", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/boom", "GET", "500")))

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}
