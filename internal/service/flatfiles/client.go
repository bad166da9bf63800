package flatfiles

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/flatfile"
	"FlatPull/pkg/logger"
	"FlatPull/internal/service/retry"
)

// Config holds the S3-compatible endpoint settings of the flat-file store.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// Client implements repository.DayFileSource on top of S3 GetObject.
// Retries are left to the caller, the SDK retryer is disabled.
type Client struct {
	s3     *s3.Client
	bucket string
	logger *logger.Logger
}

func New(ctx context.Context, cfg Config, l *logger.Logger) (*Client, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("flat files: %w: set MASSIVE_AWS_ACCESS_KEY_ID and MASSIVE_AWS_SECRET_ACCESS_KEY or MASSIVE_API_KEY", models.ErrMissingCredentials)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if l == nil {
		l = logger.NewNop()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &Client{s3: client, bucket: cfg.Bucket, logger: l}, nil
}

// FetchDayFile downloads one day's file. With IfNoneMatch set, an unchanged
// remote object yields models.Unchanged without a body transfer.
func (c *Client) FetchDayFile(ctx context.Context, req models.DayFileRequest) (models.FetchResult, error) {
	key := models.ObjectKey(req.RemotePrefix, req.Day)
	in := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if req.IfNoneMatch != "" {
		in.IfNoneMatch = aws.String(quoteETag(string(req.IfNoneMatch)))
	}

	out, err := c.s3.GetObject(ctx, in)
	if err != nil {
		return c.classify(ctx, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		classified := retry.ClassifyNetwork(ctx, err)
		if ctx.Err() == nil && !models.IsTransient(classified) {
			// A body cut short mid-transfer is a dropped connection whatever the cause.
			classified = models.NewTransient(models.TransientReset, err)
		}
		return models.FetchResult{}, fmt.Errorf("read %s: %w", key, classified)
	}

	if !flatfile.IsGzip(data) {
		return models.FetchResult{}, fmt.Errorf("%s: %w: not gzip content", key, models.ErrMalformedPayload)
	}

	sum := md5.Sum(data)
	fp := models.Fingerprint(hex.EncodeToString(sum[:]))
	c.logger.Debug("flat file downloaded",
		logger.String("key", key),
		logger.Int("bytes", len(data)),
		logger.String("etag", strings.Trim(aws.ToString(out.ETag), `"`)),
	)
	return models.Found(data, fp), nil
}

func (c *Client) classify(ctx context.Context, key string, err error) (models.FetchResult, error) {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return models.NotFound(), nil
	}

	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		switch status := withStatus.HTTPStatusCode(); status {
		case http.StatusNotModified:
			return models.Unchanged(), nil
		case http.StatusNotFound:
			return models.NotFound(), nil
		default:
			if classified := retry.ClassifyStatus(status, err); classified != nil {
				return models.FetchResult{}, fmt.Errorf("get %s: %w", key, classified)
			}
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotModified":
			return models.Unchanged(), nil
		case "NoSuchKey":
			return models.NotFound(), nil
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return models.FetchResult{}, fmt.Errorf("get %s: %w: %w", key, models.ErrEntitlement, err)
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return models.FetchResult{}, fmt.Errorf("get %s: %w", key, models.NewTransient(models.TransientServer, err))
		}
	}

	return models.FetchResult{}, fmt.Errorf("get %s: %w", key, retry.ClassifyNetwork(ctx, err))
}

func quoteETag(fp string) string {
	if strings.HasPrefix(fp, `"`) {
		return fp
	}
	return `"` + fp + `"`
}
