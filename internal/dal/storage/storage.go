package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

// UploadResult carries the key and public URL of a stored object.
type UploadResult struct {
	Key string
	URL string
}

// Gateway is the object storage gateway for generated invoices.
type Gateway struct {
	client   *minio.Client
	endpoint string
	bucket   string
	secure   bool
}

// MustNewGateway creates a new object storage gateway and ensures the
// invoice bucket exists.
func MustNewGateway() *Gateway {
	endpoint := viper.GetString("storage.endpoint")
	bucket := viper.GetString("storage.bucket")
	secure := viper.GetBool("storage.use_ssl")

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(
			os.Getenv("STORAGE_ACCESS_KEY"),
			os.Getenv("STORAGE_SECRET_KEY"),
			"",
		),
		Secure: secure,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create storage client: %v", err))
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		panic(fmt.Sprintf("Failed to check storage bucket: %v", err))
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			panic(fmt.Sprintf("Failed to create storage bucket: %v", err))
		}
	}

	return &Gateway{
		client:   client,
		endpoint: endpoint,
		bucket:   bucket,
		secure:   secure,
	}
}

// ObjectKey returns the deterministic storage key for an order's
// invoice document.
func ObjectKey(orderID string) string {
	return fmt.Sprintf("invoices/%s.pdf", orderID)
}

// Upload stores the document under key and returns its key and URL.
func (g *Gateway) Upload(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
) (UploadResult, error) {
	_, err := g.client.PutObject(
		ctx,
		g.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	scheme := "http"
	if g.secure {
		scheme = "https"
	}

	return UploadResult{
		Key: key,
		URL: fmt.Sprintf("%s://%s/%s/%s", scheme, g.endpoint, g.bucket, key),
	}, nil
}

// Exists reports whether an object is present under key.
func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return true, nil
}

// PresignedGet issues a time-limited signed retrieval URL for key.
func (g *Gateway) PresignedGet(
	ctx context.Context,
	key string,
	expiry time.Duration,
) (string, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}

	return u.String(), nil
}
