package storage

import (
	"bytes"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStorage uploads export artifacts to a Supabase bucket.
type SupabaseStorage struct {
	client  *storage.Client
	baseURL string
	bucket  string
}

func NewSupabaseStorage(supabaseURL, serviceKey, bucket string) (*SupabaseStorage, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase credentials not set")
	}
	if bucket == "" {
		bucket = "founderframe-exports"
	}

	client := storage.NewClient(supabaseURL+"/storage/v1", serviceKey, nil)

	return &SupabaseStorage{
		client:  client,
		baseURL: supabaseURL,
		bucket:  bucket,
	}, nil
}

// UploadJSON stores a JSON artifact and returns its public URL.
func (s *SupabaseStorage) UploadJSON(name string, data []byte) (string, error) {
	contentType := "application/json"

	_, err := s.client.UploadFile(
		s.bucket,
		name,
		bytes.NewReader(data),
		storage.FileOptions{ContentType: &contentType},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		strings.TrimSuffix(s.baseURL, "/"),
		s.bucket,
		name)

	return publicURL, nil
}
