package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolGraph/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error {
	args := m.Called(ctx, bucketName, config)
	return args.Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

// GetObject is never reached in unit tests: *minio.Object cannot be built
// without a server, so downloads go through the repository's open hook.
func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

type RepositoryTestSuite struct {
	suite.Suite
	mockAPI *MockMinIOAPI
	repo    ObjectStorageRepository
	objects map[string][]byte
}

func (s *RepositoryTestSuite) SetupTest() {
	s.mockAPI = new(MockMinIOAPI)
	s.repo = NewMinIORepositoryWithAPI(s.mockAPI, logging.NewNopLogger())
	s.objects = map[string][]byte{}
	s.repo.(*minioRepository).open = func(_ context.Context, bucket, key string) (io.ReadCloser, error) {
		data, ok := s.objects[bucket+"/"+key]
		if !ok {
			return nil, minio.ErrorResponse{Code: "NoSuchKey"}
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.mockAPI.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestUpload_Success() {
	payload := []byte(`{"N":[2]}`)
	s.mockAPI.On("PutObject", mock.Anything, "exports", "batches/a.json", mock.Anything, int64(len(payload)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/json" })).
		Return(minio.UploadInfo{Bucket: "exports", Key: "batches/a.json", ETag: "etag", Size: int64(len(payload))}, nil)

	res, err := s.repo.Upload(context.Background(), &UploadRequest{
		Bucket:      "exports",
		ObjectKey:   "batches/a.json",
		Data:        payload,
		ContentType: "application/json",
	})
	s.Require().NoError(err)
	s.Equal("etag", res.ETag)
	s.Equal("s3://exports/batches/a.json", res.URI)
	s.Equal(int64(len(payload)), res.Size)
}

func (s *RepositoryTestSuite) TestUpload_InvalidRequest() {
	_, err := s.repo.Upload(context.Background(), &UploadRequest{Bucket: "exports"})
	s.True(pkgerrors.IsValidation(err))
}

func (s *RepositoryTestSuite) TestUpload_BackendError() {
	s.mockAPI.On("PutObject", mock.Anything, "exports", "k", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection refused"))

	_, err := s.repo.Upload(context.Background(), &UploadRequest{Bucket: "exports", ObjectKey: "k", Data: []byte("x")})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeExternalService))
}

func (s *RepositoryTestSuite) TestDownload_Success() {
	s.objects["datasets/qm9.npz"] = []byte("PK\x03\x04")

	data, err := s.repo.Download(context.Background(), "datasets", "qm9.npz")
	s.Require().NoError(err)
	s.Equal([]byte("PK\x03\x04"), data)
}

func (s *RepositoryTestSuite) TestDownload_NotFound() {
	_, err := s.repo.Download(context.Background(), "datasets", "missing.npz")
	s.True(pkgerrors.IsNotFound(err))
}

func (s *RepositoryTestSuite) TestGet_ByURI() {
	s.objects["datasets/qm9/train.npz"] = []byte("payload")

	data, err := s.repo.Get(context.Background(), "s3://datasets/qm9/train.npz")
	s.Require().NoError(err)
	s.Equal([]byte("payload"), data)
}

func (s *RepositoryTestSuite) TestGet_InvalidURI() {
	_, err := s.repo.Get(context.Background(), "datasets/qm9.npz")
	s.True(pkgerrors.IsValidation(err))
}

func (s *RepositoryTestSuite) TestDelete_Success() {
	s.mockAPI.On("RemoveObject", mock.Anything, "bucket", "key", mock.Anything).Return(nil)
	s.NoError(s.repo.Delete(context.Background(), "bucket", "key"))
}

func (s *RepositoryTestSuite) TestExists_True() {
	s.mockAPI.On("StatObject", mock.Anything, "bucket", "key", mock.Anything).
		Return(minio.ObjectInfo{Key: "key"}, nil)
	exists, err := s.repo.Exists(context.Background(), "bucket", "key")
	s.NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestExists_False() {
	s.mockAPI.On("StatObject", mock.Anything, "bucket", "key", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	exists, err := s.repo.Exists(context.Background(), "bucket", "key")
	s.NoError(err)
	s.False(exists)
}

func (s *RepositoryTestSuite) TestList_StopsAtMaxKeys() {
	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "batches/1.json", Size: 10}
	ch <- minio.ObjectInfo{Key: "batches/2.json", Size: 20}
	ch <- minio.ObjectInfo{Key: "batches/3.json", Size: 30}
	close(ch)
	s.mockAPI.On("ListObjects", mock.Anything, "exports", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	objs, err := s.repo.List(context.Background(), "exports", "batches/", 2)
	s.Require().NoError(err)
	s.Len(objs, 2)
	s.Equal("batches/1.json", objs[0].ObjectKey)
}

func (s *RepositoryTestSuite) TestList_PropagatesError() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("access denied")}
	close(ch)
	s.mockAPI.On("ListObjects", mock.Anything, "exports", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := s.repo.List(context.Background(), "exports", "", 0)
	s.Error(err)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestParseObjectURI(t *testing.T) {
	bucket, key, err := ParseObjectURI("s3://datasets/qm9/eV.npz")
	require.NoError(t, err)
	assert.Equal(t, "datasets", bucket)
	assert.Equal(t, "qm9/eV.npz", key)
	assert.Equal(t, "s3://datasets/qm9/eV.npz", ObjectURI(bucket, key))

	for _, bad := range []string{"", "datasets/qm9.npz", "s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := ParseObjectURI(bad)
		assert.Error(t, err, bad)
	}
}
