package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

const azureOpTimeout = 2 * time.Minute

// AzureStorage keeps artifacts as blobs in one container
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

var _ StorageInterface = (*AzureStorage)(nil)

// NewAzureStorage connects with the default Azure credential chain
// (managed identity, environment, CLI) and creates the container if needed
func NewAzureStorage(accountName, containerName string) (*AzureStorage, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}
	if containerName == "" {
		containerName = "mentions"
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	s := &AzureStorage{
		client:        client,
		containerName: containerName,
	}

	if err := s.ensureContainer(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *AzureStorage) ensureContainer() error {
	ctx, cancel := context.WithTimeout(context.Background(), azureOpTimeout)
	defer cancel()

	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	switch {
	case err == nil:
		logrus.WithField("container", s.containerName).Info("Created artifact container")
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
		logrus.WithField("container", s.containerName).Debug("Artifact container already exists")
	default:
		return fmt.Errorf("failed to create container %s: %w", s.containerName, err)
	}
	return nil
}

// Store uploads an artifact, replacing any blob with the same name
func (s *AzureStorage) Store(name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), azureOpTimeout)
	defer cancel()

	mime := ContentType(name)
	_, err = s.client.UploadBuffer(ctx, s.containerName, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &mime},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"artifact": name,
		"bytes":    len(data),
	}).Info("Stored artifact in Azure Blob Storage")
	return nil
}

func (s *AzureStorage) Retrieve(name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), azureOpTimeout)
	defer cancel()

	response, err := s.client.DownloadStream(ctx, s.containerName, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("artifact %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

func (s *AzureStorage) List(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), azureOpTimeout)
	defer cancel()

	var names []string
	pager := s.client.NewListBlobsFlatPager(s.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}

	return names, nil
}

func (s *AzureStorage) Delete(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), azureOpTimeout)
	defer cancel()

	if _, err := s.client.DeleteBlob(ctx, s.containerName, name, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("artifact %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	logrus.WithField("artifact", name).Info("Deleted artifact from Azure Blob Storage")
	return nil
}
