package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
)

// MockS3Service keeps uploaded objects in memory
type MockS3Service struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string][]byte),
	}
}

// UploadFile stores the file content under prefix/<uuid><ext>
func (m *MockS3Service) UploadFile(_ context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := objectKey(prefix, fileHeader.Filename)

	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()

	return key, nil
}

// GetPresignedURL returns a fake URL for stored keys
func (m *MockS3Service) GetPresignedURL(_ context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}

	if !m.FileExists(s3Key) {
		return "", fmt.Errorf("file not found in mock S3: %s", s3Key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", s3Key), nil
}

// DeleteFile removes a stored object
func (m *MockS3Service) DeleteFile(_ context.Context, s3Key string) error {
	m.mu.Lock()
	delete(m.objects, s3Key)
	m.mu.Unlock()
	return nil
}

// FileExists checks if a key is stored
func (m *MockS3Service) FileExists(s3Key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[s3Key]
	return exists
}

// Content returns the stored bytes of a key
func (m *MockS3Service) Content(s3Key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.objects[s3Key]
	return content, ok
}
