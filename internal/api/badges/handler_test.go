package badges

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpost/trailpost-backend/internal/models"
	"github.com/trailpost/trailpost-backend/internal/service/progress"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

type fakeProgressService struct {
	views   []progress.BadgeView
	history *progress.PointHistory
	err     error

	gotFilter progress.StatusFilter
	gotPage   int
	gotLimit  int
}

func (s *fakeProgressService) GetBadgesForUser(ctx context.Context, userID uint, filter progress.StatusFilter) ([]progress.BadgeView, error) {
	s.gotFilter = filter
	return s.views, s.err
}

func (s *fakeProgressService) GetPointHistory(ctx context.Context, userID uint, page, limit int) (*progress.PointHistory, error) {
	s.gotPage = page
	s.gotLimit = limit
	return s.history, s.err
}

type fakeSubmitter struct {
	accept bool

	gotUserID uint
	gotAction string
	gotMeta   map[string]interface{}
}

func (s *fakeSubmitter) Submit(userID uint, action string, meta map[string]interface{}) bool {
	s.gotUserID = userID
	s.gotAction = action
	s.gotMeta = meta
	return s.accept
}

func setupRouter(service *fakeProgressService, submitter *fakeSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandlerWithInterfaces(service, submitter, logger.New("error", "json", "stdout"))
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestGetUserBadges(t *testing.T) {
	earnedAt := time.Now()
	service := &fakeProgressService{views: []progress.BadgeView{
		{BadgeID: 1, Name: "storyteller", Kind: models.BadgeKindPoints, RequiredPoints: 50, AccumulatedPoints: 30, Status: models.StatusInProgress},
		{BadgeID: 2, Name: "first_blog", Kind: models.BadgeKindSpecial, RequiredPoints: 100, AccumulatedPoints: 100, Status: models.StatusEarned, EarnedAt: &earnedAt},
	}}
	router := setupRouter(service, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/badges", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Badges []progress.BadgeView `json:"badges"`
		Total  int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "storyteller", resp.Badges[0].Name)
	assert.Equal(t, models.StatusEarned, resp.Badges[1].Status)
}

func TestGetUserBadges_StatusFilter(t *testing.T) {
	service := &fakeProgressService{}
	router := setupRouter(service, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/badges?status=earned", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, progress.FilterEarned, service.gotFilter)
}

func TestGetUserBadges_InvalidStatus(t *testing.T) {
	router := setupRouter(&fakeProgressService{}, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/badges?status=golden", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserBadges_InvalidUserID(t *testing.T) {
	router := setupRouter(&fakeProgressService{}, &fakeSubmitter{})

	for _, id := range []string{"abc", "0", "-5"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/users/"+id+"/badges", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "user id %q", id)
	}
}

func TestGetUserBadges_ServiceError(t *testing.T) {
	service := &fakeProgressService{err: errors.New("connection refused")}
	router := setupRouter(service, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/badges", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetPointHistory(t *testing.T) {
	service := &fakeProgressService{history: &progress.PointHistory{
		Entries: []progress.LedgerEntryView{
			{ID: 1, BadgeID: 1, BadgeName: "storyteller", Action: "createblog", PointsCredited: 10},
		},
		Pagination: progress.Pagination{Page: 2, Limit: 5, Total: 11, TotalPages: 3},
	}}
	router := setupRouter(service, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/points/history?page=2&limit=5", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, service.gotPage)
	assert.Equal(t, 5, service.gotLimit)

	var resp progress.PointHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.Pagination.Total)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "storyteller", resp.Entries[0].BadgeName)
}

func TestGetPointHistory_DefaultsAndValidation(t *testing.T) {
	service := &fakeProgressService{history: &progress.PointHistory{}}
	router := setupRouter(service, &fakeSubmitter{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/users/7/points/history", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, service.gotPage)
	assert.Equal(t, 20, service.gotLimit)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/users/7/points/history?page=nope", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/users/7/points/history?limit=-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAction(t *testing.T) {
	submitter := &fakeSubmitter{accept: true}
	router := setupRouter(&fakeProgressService{}, submitter)

	body := `{"user_id": 7, "action": "create-blog", "meta": {"blogId": 42}}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/internal/actions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["accepted"])

	assert.Equal(t, uint(7), submitter.gotUserID)
	assert.Equal(t, "create-blog", submitter.gotAction)
	assert.Equal(t, float64(42), submitter.gotMeta["blogId"])
}

func TestSubmitAction_QueueFull(t *testing.T) {
	submitter := &fakeSubmitter{accept: false}
	router := setupRouter(&fakeProgressService{}, submitter)

	body := `{"user_id": 7, "action": "like"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/internal/actions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, "overload is not the caller's problem")

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp["accepted"])
}

func TestSubmitAction_MissingFields(t *testing.T) {
	router := setupRouter(&fakeProgressService{}, &fakeSubmitter{})

	for _, body := range []string{`{}`, `{"user_id": 7}`, `{"action": "like"}`, `not json`} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/internal/actions", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}
