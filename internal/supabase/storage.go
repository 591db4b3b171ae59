package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type StorageClient struct {
	client *Client
}

// CreateSignedUploadURL returns an absolute URL the caller can PUT the
// object bytes to without further credentials.
func (s *StorageClient) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if s.client.cfg.ServiceKey == "" {
		return "", fmt.Errorf("service key not configured")
	}
	endpoint := s.client.storageURL + "/object/upload/sign/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
	resp, err := s.client.do(ctx, http.MethodPost, endpoint, []byte("{}"), s.client.cfg.ServiceKey)
	if err != nil {
		return "", err
	}

	signed := gjson.GetBytes(resp, "url").String()
	if signed == "" {
		return "", fmt.Errorf("signed upload response has no url")
	}
	if strings.HasPrefix(signed, "http://") || strings.HasPrefix(signed, "https://") {
		return signed, nil
	}
	return s.client.storageURL + "/" + strings.TrimLeft(signed, "/"), nil
}

// PublicURL is where an object in a public bucket can be read.
func (s *StorageClient) PublicURL(bucket, objectPath string) string {
	return s.client.storageURL + "/object/public/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
