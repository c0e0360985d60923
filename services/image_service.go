package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/stitchwise-api/utils"
)

// ImageService stores revision images and message attachments
type ImageService interface {
	// UploadImage validates and stores an image, returning its storage key.
	// Images tied to an order are grouped under that order's prefix.
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, orderID uint) (string, error)

	// ImageURL returns a temporary download URL for a stored image
	ImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

func imagePrefix(orderID uint) string {
	if orderID == 0 {
		return "uploads"
	}
	return fmt.Sprintf("orders/%d", orderID)
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, orderID uint) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	s3Key, err := s.s3Service.UploadFile(ctx, fileHeader, imagePrefix(orderID))
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s3Key, nil
}

// ImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) ImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
