package store

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"statement-worker/internal/domain"
)

var _ domain.ObjectStore = (*AzureStore)(nil)

// AzureStore writes result objects to Azure Blob Storage. The leading path
// segment is the container name.
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore creates a store from a shared-key credential.
func NewAzureStore(accountName, accountKey string) (*AzureStore, error) {
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("azure account name and key are required")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return &AzureStore{client: client}, nil
}

// WriteBytes uploads data to {container}/{key}.
func (s *AzureStore) WriteBytes(ctx context.Context, path string, data []byte) error {
	container, key, err := splitPath(path)
	if err != nil {
		return err
	}

	if _, err := s.client.UploadBuffer(ctx, container, key, data, nil); err != nil {
		return fmt.Errorf("upload blob %q: %w", path, err)
	}
	return nil
}
