package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// URIScheme prefixes object references such as s3://datasets/qm9.npz.
const URIScheme = "s3://"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
	ErrInvalidURI     = errors.New(errors.ErrCodeValidation, "invalid object uri")
)

// ObjectStorageRepository reads datasets from and writes exports to object
// storage.
type ObjectStorageRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Download(ctx context.Context, bucket, objectKey string) ([]byte, error)
	Exists(ctx context.Context, bucket, objectKey string) (bool, error)
	Delete(ctx context.Context, bucket, objectKey string) error
	List(ctx context.Context, bucket, prefix string, maxKeys int) ([]ObjectMetadata, error)
	// Get downloads the object named by an s3://bucket/key uri.
	Get(ctx context.Context, uri string) ([]byte, error)
}

type UploadRequest struct {
	Bucket      string
	ObjectKey   string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	URI        string
	UploadedAt time.Time
}

type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ETag         string
	LastModified time.Time
}

// openFunc returns a reader positioned at the start of an object.
type openFunc func(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

type minioRepository struct {
	api    MinIOAPI
	logger logging.Logger
	open   openFunc
}

func NewMinIORepository(client *MinIOClient, log logging.Logger) ObjectStorageRepository {
	return NewMinIORepositoryWithAPI(client.GetClient(), log)
}

func NewMinIORepositoryWithAPI(api MinIOAPI, log logging.Logger) ObjectStorageRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &minioRepository{api: api, logger: log}
	r.open = r.getObject
	return r
}

// ParseObjectURI splits s3://bucket/key into its parts.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return "", "", ErrInvalidURI.WithDetail(uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, URIScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidURI.WithDetail(uri)
	}
	return parts[0], parts[1], nil
}

// ObjectURI is the inverse of ParseObjectURI.
func ObjectURI(bucket, key string) string {
	return URIScheme + bucket + "/" + key
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (r *minioRepository) getObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	obj, err := r.api.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (r *minioRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || req.Bucket == "" || req.ObjectKey == "" {
		return nil, ErrInvalidRequest
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType:  req.ContentType,
		UserMetadata: req.Metadata,
	}
	info, err := r.api.PutObject(ctx, req.Bucket, req.ObjectKey, bytes.NewReader(req.Data), int64(len(req.Data)), opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "upload failed").WithDetail(ObjectURI(req.Bucket, req.ObjectKey))
	}

	r.logger.Debug("Uploaded object",
		logging.String("bucket", req.Bucket),
		logging.String("key", req.ObjectKey),
		logging.Int64("size", info.Size))

	return &UploadResult{
		Bucket:     req.Bucket,
		ObjectKey:  req.ObjectKey,
		ETag:       info.ETag,
		Size:       info.Size,
		URI:        ObjectURI(req.Bucket, req.ObjectKey),
		UploadedAt: time.Now(),
	}, nil
}

func (r *minioRepository) Download(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	rc, err := r.open(ctx, bucket, objectKey)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(ObjectURI(bucket, objectKey))
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "download failed").WithDetail(ObjectURI(bucket, objectKey))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "download failed").WithDetail(ObjectURI(bucket, objectKey))
	}
	return data, nil
}

func (r *minioRepository) Exists(ctx context.Context, bucket, objectKey string) (bool, error) {
	_, err := r.api.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "stat failed")
	}
	return true, nil
}

func (r *minioRepository) Delete(ctx context.Context, bucket, objectKey string) error {
	if err := r.api.RemoveObject(ctx, bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete failed").WithDetail(ObjectURI(bucket, objectKey))
	}
	return nil
}

func (r *minioRepository) List(ctx context.Context, bucket, prefix string, maxKeys int) ([]ObjectMetadata, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := r.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var objects []ObjectMetadata
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "list failed")
		}
		objects = append(objects, ObjectMetadata{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
		if len(objects) >= maxKeys {
			break
		}
	}
	return objects, nil
}

func (r *minioRepository) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	return r.Download(ctx, bucket, key)
}
