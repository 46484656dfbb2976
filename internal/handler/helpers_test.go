package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/router"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

const (
	headerUserID   = "X-Test-User"
	headerUserRole = "X-Test-Role"
)

type caller struct {
	id   uint
	role string
}

var (
	teacher  = caller{id: 7, role: "teacher"}
	intruder = caller{id: 8, role: "teacher"}
	admin    = caller{id: 1, role: "admin"}
	student  = caller{id: 100, role: "student"}
	peer     = caller{id: 101, role: "student"}
)

type testApp struct {
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
	events service.GradingEventService
}

type appOptions struct {
	submitLimit int
	realLimiter bool
}

// fakeJWT trusts identity headers so tests can switch callers per request.
func fakeJWT(c *fiber.Ctx) error {
	if raw := c.Get(headerUserID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("user_id", uint(id))
	}
	if role := c.Get(headerUserRole); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupGradingApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	store := repository.NewStore(db)
	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	events := service.NewGradingEventService(nil, "", nil, logger)
	stats := service.NewSubmissionStatsService(store, repository.NewRollupRepository(db), redisClient, time.Minute, logger)
	submissions := service.NewSubmissionService(store, validate, events, stats, logger)
	grading := service.NewGradingService(store, validate, activityService, events, stats, logger)
	questions := service.NewQuestionService(store, validate, activityService, logger)
	sources := service.NewSourceService(store, validate, logger)

	deps := router.Dependencies{
		SubmissionHandler:   handler.NewSubmissionHandler(submissions, logger),
		GradingHandler:      handler.NewGradingHandler(grading, logger),
		TeacherHandler:      handler.NewTeacherHandler(sources, questions, stats, logger),
		ExamHandler:         handler.NewExamHandler(sources, logger),
		GradingEventHandler: handler.NewGradingEventHandler(events, sources, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:       fakeJWT,
	}
	if !opts.realLimiter {
		deps.SubmitLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", SubmissionRateLimit: opts.submitLimit}, deps)

	return &testApp{app: app, db: db, redis: server, events: events}
}

func (a *testApp) do(t *testing.T, who caller, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.id != 0 {
		req.Header.Set(headerUserID, strconv.FormatUint(uint64(who.id), 10))
		req.Header.Set(headerUserRole, who.role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope[T any] struct {
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", status, resp.StatusCode, body)
	}
}
