package repository

import (
	"bytes"
	"context"

	"reelconnect_service/pkg/database"
)

// MediaStorage message media on minio
type MediaStorage struct {
	minio *database.MinIOClient
}

// NewMediaStorage create MediaStorage
func NewMediaStorage(minio *database.MinIOClient) *MediaStorage {
	return &MediaStorage{minio: minio}
}

// Put upload data under key and return a retrievable url
func (s *MediaStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.minio.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return s.minio.ObjectURL(ctx, key)
}

// Remove delete key
func (s *MediaStorage) Remove(ctx context.Context, key string) error {
	return s.minio.RemoveObject(ctx, key)
}
