package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// PresignExpiry bounds presigned upload URLs.
const PresignExpiry = 15 * time.Minute

type S3Config struct {
	Region       string
	Bucket       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	// PublicBaseURL prefixes public object URLs; BaseEndpoint when empty.
	PublicBaseURL string
}

// s3API is the part of *s3.Client the store calls directly.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// ObjectStore keeps note files in one S3 bucket. Uploads go through a
// presigned PUT URL.
type ObjectStore struct {
	cfg     S3Config
	api     s3API
	presign *s3.PresignClient
	http    *http.Client
}

var _ client.Storage = (*ObjectStore)(nil)

func NewObjectStore(ctx context.Context, cfg S3Config, httpClient *http.Client) (*ObjectStore, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &ObjectStore{cfg: cfg, api: c, presign: newS3PresignClient(c), http: httpClient}, nil
}

func (o *ObjectStore) objectID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(o.cfg.Bucket+"/"+key)).String()
}

// mapError turns missing key and bucket responses into the client sentinels.
func mapError(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return client.ErrNotFound
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return client.ErrBucketNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return client.ErrNotFound
		case "NoSuchBucket":
			return client.ErrBucketNotFound
		}
	}
	return err
}

// List returns the objects directly under prefix.
func (o *ObjectStore) List(ctx context.Context, prefix string) ([]models.StorageObject, error) {
	dir := strings.Trim(prefix, "/") + "/"

	p := s3.NewListObjectsV2Paginator(o.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(o.cfg.Bucket),
		Prefix:    aws.String(dir),
		Delimiter: aws.String("/"),
	})

	out := []models.StorageObject{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, mapError(err))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, dir)
			if name == "" {
				continue
			}
			out = append(out, models.StorageObject{
				ID:        o.objectID(key),
				Name:      name,
				Size:      aws.ToInt64(obj.Size),
				UpdatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func (o *ObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	res, err := o.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, mapError(err))
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (o *ObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(o.cfg.Bucket),
		Key:    aws.String(path),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(o.presign, ctx, in, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return fmt.Errorf("presign %s: %w", path, err)
	}

	if err := netx.UploadPresigned(ctx, o.http, req.URL, contentType, data); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// PublicURL is <public base>/<bucket>/<escaped key>.
func (o *ObjectStore) PublicURL(path string) string {
	base := o.cfg.PublicBaseURL
	if base == "" {
		base = o.cfg.BaseEndpoint
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + o.cfg.Bucket + "/" + strings.Join(segs, "/")
}

func (o *ObjectStore) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(p)})
	}

	res, err := o.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(o.cfg.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("remove: %w", mapError(err))
	}
	if len(res.Errors) > 0 {
		e := res.Errors[0]
		return fmt.Errorf("remove %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}
