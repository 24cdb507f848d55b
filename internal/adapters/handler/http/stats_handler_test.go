package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func getStats(app *testApp, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats/weekly"+query, nil))
	return w
}

func TestGetWeeklyStats(t *testing.T) {
	t.Run("Success: Explicit range", func(t *testing.T) {
		app := newTestApp(t, nil)
		ctx := context.Background()
		habit, err := app.repo.InsertHabit(ctx, "Run")
		require.NoError(t, err)
		for _, d := range []string{"2026-10-14", "2026-10-15"} {
			require.NoError(t, app.repo.InsertHabitPerformed(ctx, habit.ID, domain.MustParseDate(d)))
		}

		w := getStats(app, "?start_date=2026-10-10&end_date=2026-10-16")

		require.Equal(t, http.StatusOK, w.Code)
		var stats domain.WeeklyStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, "2026-10-10", stats.StartDate)
		assert.Equal(t, 1, stats.TotalHabits)
		require.Len(t, stats.HabitStats, 1)
		assert.Equal(t, 2, stats.HabitStats[0].DaysCompleted)
		assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 0}, stats.HabitStats[0].DailyProgress)
	})

	t.Run("Success: Defaults to the last seven days", func(t *testing.T) {
		app := newTestApp(t, nil)

		w := getStats(app, "")

		require.Equal(t, http.StatusOK, w.Code)
		var stats domain.WeeklyStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, "2026-10-10", stats.StartDate)
		assert.Equal(t, "2026-10-16", stats.EndDate)
	})

	t.Run("Fail: Bad requests", func(t *testing.T) {
		app := newTestApp(t, nil)

		queries := map[string]string{
			"?end_date=16-10-2026":                       "invalid end_date",
			"?start_date=yesterday":                      "invalid start_date",
			"?start_date=2026-10-17&end_date=2026-10-16": "cannot be after",
			"?start_date=2024-01-01&end_date=2026-10-16": "too large",
		}
		for query, want := range queries {
			w := getStats(app, query)
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
			assert.Contains(t, w.Body.String(), want, query)
		}
	})

	t.Run("Fail: Storage error", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.repo.FailOn("SelectAllHabits", 1)

		w := getStats(app, "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
