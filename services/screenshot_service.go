package services

import (
	"fmt"
	"log"
)

// ScreenshotService archives fill-job evidence captures to S3 so operators
// can diagnose failed fields after the browser context is gone. When S3 is
// not configured the screenshots still travel inline in the FillReport; only
// the archival copy is skipped.
type ScreenshotService struct {
	s3 *S3Service
}

func NewScreenshotService() *ScreenshotService {
	s3Service, err := NewS3Service()
	if err != nil {
		log.Printf("Warning: S3 service not initialized: %v", err)
		return &ScreenshotService{}
	}
	return &ScreenshotService{s3: s3Service}
}

// Archive uploads each capture under the job's prefix, preserving capture
// order in the key sequence, and returns the stored keys.
func (s *ScreenshotService) Archive(jobID string, screenshots [][]byte) ([]string, error) {
	if s.s3 == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(screenshots))
	for i, shot := range screenshots {
		key := fmt.Sprintf("screenshots/%s/%03d.png", jobID, i)
		if err := s.s3.UploadBytes(shot, key, "image/png"); err != nil {
			return keys, fmt.Errorf("failed to archive screenshot %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// PresignedURL resolves a stored screenshot key to a time-limited download
// URL.
func (s *ScreenshotService) PresignedURL(key string) (string, error) {
	if s.s3 == nil {
		return "", fmt.Errorf("screenshot storage not configured")
	}
	return s.s3.GeneratePresignedURL(key)
}
