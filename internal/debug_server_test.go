package internal

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"youcube/domain"
	"youcube/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestInspectHandler_ListsAssets(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	assets := mocks.NewMockIAssetRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given two indexed assets
	assets.EXPECT().List(5).Return([]domain.AssetRecord{
		{ID: "a1", Title: "First", SourceURL: "https://youtu.be/1", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "b2", Title: "Second", SourceURL: "https://youtu.be/2", Resolutions: []domain.Resolution{{Width: 164, Height: 81}}},
	}, nil)
	stats := func() map[string]any { return map[string]any{"Workers": 2} }

	// When the page is requested
	rec := httptest.NewRecorder()
	InspectHandler(log, assets, stats).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect?limit=5", nil))

	// Then both rows are rendered
	req.Equal(http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	req.NoError(err)
	req.Contains(string(body), "First")
	req.Contains(string(body), "164x81")
	req.Contains(string(body), "audio only")
	req.Contains(string(body), "2024-01-02 03:04:05")
	req.Contains(string(body), "Workers: 2")
}

func TestInspectHandler_ListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	assets := mocks.NewMockIAssetRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	assets.EXPECT().List(defaultInspectLimit).Return(nil, fmt.Errorf("boom"))

	rec := httptest.NewRecorder()
	InspectHandler(log, assets, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect?limit=abc", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
