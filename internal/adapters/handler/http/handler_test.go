package http_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/projection"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type testApp struct {
	router  *gin.Engine
	engine  *services.TrackerEngine
	repo    *repository.InMemoryTrackerRepository
	resumes atomic.Int32
}

func newTestApp(t *testing.T, tokens *services.TokenService) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewInMemoryTrackerRepository()
	clock := domain.NewDayClock(domain.NewFixedClock(testNow), domain.DefaultRolloverHour)
	engine := services.NewTrackerEngine(repo, clock, services.WithNoteDebounce(10*time.Millisecond))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Close(ctx)
	})

	app := &testApp{engine: engine, repo: repo}
	app.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		TrackerHandler: adapterHTTP.NewTrackerHandler(engine, projection.NewMapper(), func() { app.resumes.Add(1) }),
		StatsHandler:   adapterHTTP.NewStatsHandler(services.NewStatsService(repo), clock),
		TokenService:   tokens,
		Store:          repo,
		StartTime:      testNow,
	})
	return app
}

func (a *testApp) initialize(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.engine.Process(ctx, services.InitializeTracker{}))
	require.NoError(t, a.engine.Wait(ctx))
}

func (a *testApp) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.engine.Wait(ctx))
}
