package warehouse

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	sharedConfig "github.com/Log-Tools/lift-tickets-pipeline/config"
)

// uploader is the slice of *azblob.Client the stage needs
type uploader interface {
	UploadFile(ctx context.Context, containerName string, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

// AzureStage uploads artifacts to the container behind an external stage
type AzureStage struct {
	client    uploader
	container string
	prefix    string
}

// NewAzureStage authenticates with the storage account's shared key
func NewAzureStage(account sharedConfig.StorageAccount, container, prefix string) (*AzureStage, error) {
	if account.AccountName == "" || account.AccessKey == "" {
		return nil, fmt.Errorf("storage account name and access key are required")
	}

	cred, err := azblob.NewSharedKeyCredential(account.AccountName, account.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential for %s: %w", account.AccountName, err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", account.AccountName, err)
	}

	log.Printf("Azure stage configured for %s/%s", account.AccountName, container)
	return newAzureStage(client, container, prefix), nil
}

func newAzureStage(client uploader, container, prefix string) *AzureStage {
	return &AzureStage{client: client, container: container, prefix: prefix}
}

// BlobName returns the blob a local file is uploaded to
func (a *AzureStage) BlobName(localPath string) string {
	base := filepath.Base(localPath)
	if a.prefix == "" {
		return base
	}
	return path.Join(a.prefix, base)
}

func (a *AzureStage) Put(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	name := a.BlobName(localPath)
	if _, err := a.client.UploadFile(ctx, a.container, name, f, &azblob.UploadFileOptions{}); err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", localPath, a.container, name, err)
	}
	return nil
}
