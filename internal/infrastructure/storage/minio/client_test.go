package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolGraph/pkg/errors"
)

func TestApplyDefaults(t *testing.T) {
	cfg := config.MinIOConfig{Endpoint: "localhost:9000"}
	applyDefaults(&cfg)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "molgraph-batches", cfg.ExportBucket)
}

func newTestClient(api *MockMinIOAPI) *MinIOClient {
	return newMinIOClientWithAPI(api, config.MinIOConfig{Region: "us-east-1", ExportBucket: "exports"}, logging.NewNopLogger())
}

func TestEnsureBucket_CreatesMissing(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "exports").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "exports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	assert.NoError(t, newTestClient(api).EnsureBucket(context.Background(), "exports"))
	api.AssertExpectations(t)
}

func TestEnsureBucket_Existing(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "exports").Return(true, nil)

	assert.NoError(t, newTestClient(api).EnsureBucket(context.Background(), "exports"))
	api.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureBucket_Error(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "exports").Return(false, errors.New("denied"))

	err := newTestClient(api).EnsureBucket(context.Background(), "exports")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeExternalService))
}

func TestSetupLifecycleRules_FailureIsTolerated(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("SetBucketLifecycle", mock.Anything, "exports", mock.Anything).Return(errors.New("not implemented"))

	newTestClient(api).SetupLifecycleRules(context.Background())
	api.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{{Name: "exports"}}, nil).Once()
	api.On("ListBuckets", mock.Anything).Return(nil, errors.New("down")).Once()

	c := newTestClient(api)
	assert.NoError(t, c.HealthCheck(context.Background()))
	assert.True(t, pkgerrors.IsCode(c.HealthCheck(context.Background()), pkgerrors.ErrCodeServiceUnavailable))

	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrMinIOClientClosed)
	assert.Equal(t, "exports", c.ExportBucket())
}
