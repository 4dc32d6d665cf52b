package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph/internal/application/batching"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	"github.com/turtacn/MolGraph/internal/interfaces/http/middleware"
	"github.com/turtacn/MolGraph/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) BuildBatch(ctx context.Context, indices []int) (*molgraph.IndexBatch, error) {
	args := m.Called(ctx, indices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*molgraph.IndexBatch), args.Error(1)
}

func (m *MockBatchService) ExportBatch(ctx context.Context, input *batching.ExportInput) (*batching.ExportResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batching.ExportResult), args.Error(1)
}

func (m *MockBatchService) DatasetInfo() *batching.DatasetInfo {
	return m.Called().Get(0).(*batching.DatasetInfo)
}

func setupBatchRouter(svc batching.Service) *gin.Engine {
	h := NewBatchHandler(svc, nil)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/api/v1/batches", h.Build)
	r.POST("/api/v1/batches/export", h.Export)
	r.GET("/api/v1/dataset", h.Dataset)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBatchHandler_Build(t *testing.T) {
	svc := new(MockBatchService)
	batch := &molgraph.IndexBatch{N: []int{2}, BatchSeg: []int{0, 0}, EdgeI: []int{0, 1}, EdgeJ: []int{1, 0}}
	svc.On("BuildBatch", mock.Anything, []int{4}).Return(batch, nil).Once()

	w := doJSON(setupBatchRouter(svc), http.MethodPost, "/api/v1/batches", `{"indices":[4]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.JSONEq(t, `[2]`, string(body["N"]))
	assert.JSONEq(t, `[0,1]`, string(body["idnb_i"]))
	svc.AssertExpectations(t)
}

func TestBatchHandler_Build_InvalidBody(t *testing.T) {
	svc := new(MockBatchService)
	r := setupBatchRouter(svc)

	for _, body := range []string{`{`, `{}`, `{"indices":"0"}`} {
		w := doJSON(r, http.MethodPost, "/api/v1/batches", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(errors.ErrCodeBadRequest), resp.Code)
		assert.NotEmpty(t, resp.RequestID)
	}
	svc.AssertNotCalled(t, "BuildBatch", mock.Anything, mock.Anything)
}

func TestBatchHandler_Build_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errors.ErrorCode
		wantDetail string
	}{
		{
			name:       "index out of range",
			err:        errors.New(errors.ErrCodeIndexOutOfRange, "molecule index out of range").WithDetail("index 9, store holds 3"),
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeIndexOutOfRange,
			wantDetail: "index 9, store holds 3",
		},
		{
			name:       "empty batch",
			err:        errors.New(errors.ErrCodeEmptyBatch, "batch selects no molecules"),
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeEmptyBatch,
		},
		{
			name:       "internal failure is masked",
			err:        errors.New(errors.ErrCodeCacheError, "redis exploded").WithDetail("secret host"),
			wantStatus: errors.HTTPStatusForCode(errors.ErrCodeCacheError),
			wantCode:   errors.ErrCodeCacheError,
		},
		{
			name:       "plain error",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   errors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBatchService)
			svc.On("BuildBatch", mock.Anything, []int{9}).Return(nil, tt.err)

			w := doJSON(setupBatchRouter(svc), http.MethodPost, "/api/v1/batches", `{"indices":[9]}`)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.wantCode), resp.Code)
			assert.Equal(t, tt.wantDetail, resp.Detail)
			assert.NotContains(t, resp.Message, "redis exploded")
		})
	}
}

func TestBatchHandler_Export(t *testing.T) {
	svc := new(MockBatchService)
	svc.On("ExportBatch", mock.Anything, &batching.ExportInput{Indices: []int{0, 1}, Bucket: "b"}).
		Return(&batching.ExportResult{URI: "s3://b/k.json", Molecules: 2}, nil).Once()

	w := doJSON(setupBatchRouter(svc), http.MethodPost, "/api/v1/batches/export", `{"indices":[0,1],"bucket":"b"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var res batching.ExportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "s3://b/k.json", res.URI)
	assert.Equal(t, 2, res.Molecules)
}

func TestBatchHandler_Export_Disabled(t *testing.T) {
	svc := new(MockBatchService)
	svc.On("ExportBatch", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeFeatureDisabled, "batch export is not configured"))

	w := doJSON(setupBatchRouter(svc), http.MethodPost, "/api/v1/batches/export", `{"indices":[0]}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestBatchHandler_Dataset(t *testing.T) {
	svc := new(MockBatchService)
	svc.On("DatasetInfo").Return(&batching.DatasetInfo{Molecules: 3, Targets: []string{"homo"}, Cutoff: 5})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil)
	w := httptest.NewRecorder()
	setupBatchRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var info batching.DatasetInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 3, info.Molecules)
	assert.Equal(t, []string{"homo"}, info.Targets)
	assert.Equal(t, 5.0, info.Cutoff)
}
