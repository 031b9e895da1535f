package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodorder/internal/app"
	"foodorder/internal/config"
	"foodorder/internal/database"
	"foodorder/internal/mailer"
)

func init() {
	logrus.SetOutput(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "test",
		JWTSecret:       "app-test-secret",
		TokenTTL:        time.Hour,
		CancelWindow:    time.Minute,
		OTPTTL:          10 * time.Minute,
		ProductCacheTTL: time.Minute,
		RealtimeAddr:    ":0",
	}
}

func getHealth(t *testing.T, a *app.App) (int, map[string]interface{}) {
	t.Helper()
	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthWithoutOptionalDependencies(t *testing.T) {
	a := app.New(testConfig(), app.Deps{DB: newTestDB(t)})

	status, body := getHealth(t, a)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	components := body["components"].(map[string]interface{})
	assert.Equal(t, "up", components["database"])
	assert.Equal(t, "disabled", components["cache"])
	assert.Equal(t, "disabled", components["broker"])
}

func TestHealthReportsCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	a := app.New(testConfig(), app.Deps{DB: newTestDB(t), Redis: rdb})

	status, body := getHealth(t, a)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["components"].(map[string]interface{})["cache"])

	mr.Close()
	status, body = getHealth(t, a)
	assert.Equal(t, http.StatusOK, status, "cache is not critical")
	assert.Equal(t, "degraded", body["status"])
}

func TestHealthFailsWhenDatabaseIsDown(t *testing.T) {
	db := newTestDB(t)
	a := app.New(testConfig(), app.Deps{DB: db})

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, body := getHealth(t, a)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestNewMailer(t *testing.T) {
	cfg := testConfig()

	cfg.MailTransport = "smtp"
	assert.IsType(t, &mailer.SMTPMailer{}, app.NewMailer(cfg, nil))

	cfg.MailTransport = "queue"
	assert.IsType(t, &mailer.LogMailer{}, app.NewMailer(cfg, nil), "no broker falls back to the log transport")

	cfg.MailTransport = ""
	assert.IsType(t, &mailer.LogMailer{}, app.NewMailer(cfg, nil))
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := app.New(testConfig(), app.Deps{DB: newTestDB(t)})

	require.NoError(t, app.Seed(ctx, a, "boss@example.com", "bosspass"))
	products, err := a.Products.GetAllProducts(ctx)
	require.NoError(t, err)
	seeded := len(products)
	assert.NotZero(t, seeded)

	require.NoError(t, app.Seed(ctx, a, "boss@example.com", "bosspass"))
	products, err = a.Products.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, seeded)

	admin, token, err := a.Auth.LoginAdmin(ctx, "boss@example.com", "bosspass")
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", admin.Email)
	assert.NotEmpty(t, token)
}

func TestSeedWithoutAdmin(t *testing.T) {
	ctx := context.Background()
	a := app.New(testConfig(), app.Deps{DB: newTestDB(t)})

	require.NoError(t, app.Seed(ctx, a, "", ""))
	_, _, err := a.Auth.LoginAdmin(ctx, "boss@example.com", "bosspass")
	assert.Error(t, err)
}
