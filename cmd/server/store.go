package main

import (
	"context"
	"fmt"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/storage"
)

// newReceiptStore builds the configured receipt store: local directory by
// default, S3/MinIO when RECEIPT_STORE=s3.
func newReceiptStore(cfg config.Config) (storage.ReceiptStore, error) {
	switch cfg.ReceiptStore {
	case "s3":
		s3, err := storage.NewS3Store(storage.S3Info{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 receipt store: %w", err)
		}
		if err := s3.EnsureBucket(context.Background()); err != nil {
			return nil, fmt.Errorf("ensuring receipt bucket: %w", err)
		}
		return s3, nil
	case "local", "":
		return storage.NewLocalStore(cfg.ReceiptDir)
	default:
		return nil, fmt.Errorf("unknown RECEIPT_STORE %q", cfg.ReceiptStore)
	}
}
