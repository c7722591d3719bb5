// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cmdc/b3-collector/internal/secrets"
)

// Policy parameterizes Upload's retry loop. RetryCount, RetryDelay and
// UploadTimeout correspond to helpers/storage.rs::upload_to_blob's
// RETRY_COUNT / RETRY_DELAY / UPLOAD_TIMEOUT_DURATION constants, but here
// they come from the operator's archive config instead of being fixed.
type Policy struct {
	RetryCount    int
	RetryDelay    time.Duration
	UploadTimeout time.Duration
}

// Target names the S3-compatible bucket an archive upload lands in.
type Target struct {
	Bucket   string
	Endpoint string // optional, for S3-compatible (non-AWS) providers
	Region   string
}

// SecretNames identifies which secret keys resolve the access key id,
// secret access key, and bucket name for an upload.
type SecretNames struct {
	AccessKeySecret string
	SecretKeySecret string
	BucketSecret    string
}

// Upload zips folder into md-YYYY-MM-DD.zip, uploads it under key
// YYYY-MM-DD/md-YYYY-MM-DD.zip to the bucket named by resolving
// names.BucketSecret, retries with attempt-scaled timeout and delay up to
// policy.RetryCount attempts (mirroring upload_to_blob exactly), and on
// success removes folder. On exhaustion it returns an error without
// panicking; the callers log it.
func Upload(ctx context.Context, logger *slog.Logger, folder string, names SecretNames, provider secrets.Provider, policy Policy) error {
	now := time.Now()

	zipPath, err := zipFolder(folder, now)
	if err != nil {
		return fmt.Errorf("zipping folder %s: %w", folder, err)
	}

	accessKey, err := provider.GetSecret(ctx, names.AccessKeySecret)
	if err != nil {
		return fmt.Errorf("resolving access key: %w", err)
	}
	secretKey, err := provider.GetSecret(ctx, names.SecretKeySecret)
	if err != nil {
		return fmt.Errorf("resolving secret key: %w", err)
	}
	bucket, err := provider.GetSecret(ctx, names.BucketSecret)
	if err != nil {
		return fmt.Errorf("resolving bucket name: %w", err)
	}

	client, err := newS3Client(ctx, accessKey, secretKey)
	if err != nil {
		return fmt.Errorf("building s3 client: %w", err)
	}

	key := fmt.Sprintf("%s/%s", now.Format("2006-01-02"), filepath.Base(zipPath))

	var lastErr error
	for attempt := 0; attempt < policy.RetryCount; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if d := policy.UploadTimeout * time.Duration(attempt); d > 0 {
			callCtx, cancel = context.WithTimeout(ctx, d)
		}
		err := uploadOnce(callCtx, client, bucket, key, zipPath)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			os.Remove(zipPath)
			return os.RemoveAll(folder)
		}
		lastErr = err
		logger.Warn("upload attempt failed", "attempt", attempt+1, "max_attempts", policy.RetryCount, "key", key, "error", err)
		if attempt < policy.RetryCount-1 {
			select {
			case <-time.After(policy.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				os.Remove(zipPath)
				return ctx.Err()
			}
		}
	}

	os.Remove(zipPath)
	return fmt.Errorf("uploading %s: attempts exhausted: %w", key, lastErr)
}

func newS3Client(ctx context.Context, accessKey, secretKey string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func uploadOnce(ctx context.Context, client *s3.Client, bucket, key, zipPath string) error {
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("reading zip file: %w", err)
	}

	contentType := "application/zip"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	return err
}
