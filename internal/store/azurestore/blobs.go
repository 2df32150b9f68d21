package azurestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/version"
)

// Blobs is the container surface the store needs. Names are full blob names.
type Blobs interface {
	// ListHierarchy returns the virtual directories (ending in "/") and
	// blobs directly below prefix.
	ListHierarchy(ctx context.Context, prefix string) (dirs, blobs []string, err error)
	// ListFlat returns blob names starting with prefix. max <= 0 means all.
	ListFlat(ctx context.Context, prefix string, max int) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Upload(ctx context.Context, name string, r io.Reader) error
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// containerBlobs implements Blobs with azblob.
type containerBlobs struct {
	client    *azblob.Client
	container string
}

// NewContainerBlobs connects to accountURL. With an empty accountKey the
// URL must carry a SAS token (or the container must be public).
func NewContainerBlobs(accountURL, accountName, accountKey, containerName string, httpClient *nethttp.Client) (Blobs, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			// Retries come from the retrying transport.
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Telemetry: policy.TelemetryOptions{ApplicationID: version.AppID()},
		},
	}
	if httpClient != nil {
		opts.Transport = httpClient
	}

	var (
		client *azblob.Client
		err    error
	)
	if accountKey != "" {
		cred, credErr := azblob.NewSharedKeyCredential(accountName, accountKey)
		if credErr != nil {
			return nil, fmt.Errorf("invalid shared key: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(accountURL, cred, opts)
	} else {
		client, err = azblob.NewClientWithNoCredential(accountURL, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &containerBlobs{client: client, container: containerName}, nil
}

func (c *containerBlobs) containerClient() *container.Client {
	return c.client.ServiceClient().NewContainerClient(c.container)
}

func (c *containerBlobs) ListHierarchy(ctx context.Context, prefix string) ([]string, []string, error) {
	var dirs, blobs []string
	pager := c.containerClient().NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, nil, mapError(err)
		}
		for _, p := range page.Segment.BlobPrefixes {
			dirs = append(dirs, valOrZero(p.Name))
		}
		for _, b := range page.Segment.BlobItems {
			blobs = append(blobs, valOrZero(b.Name))
		}
	}
	return dirs, blobs, nil
}

func (c *containerBlobs) ListFlat(ctx context.Context, prefix string, max int) ([]string, error) {
	opts := &container.ListBlobsFlatOptions{Prefix: to.Ptr(prefix)}
	if max > 0 {
		opts.MaxResults = to.Ptr(int32(max))
	}
	var names []string
	pager := c.containerClient().NewListBlobsFlatPager(opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, b := range page.Segment.BlobItems {
			names = append(names, valOrZero(b.Name))
			if max > 0 && len(names) >= max {
				return names, nil
			}
		}
	}
	return names, nil
}

func (c *containerBlobs) Exists(ctx context.Context, name string) (bool, error) {
	_, err := c.containerClient().NewBlobClient(name).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == nethttp.StatusNotFound {
		return false, nil
	}
	return false, mapError(err)
}

func (c *containerBlobs) Upload(ctx context.Context, name string, r io.Reader) error {
	_, err := c.client.UploadStream(ctx, c.container, name, r, nil)
	return mapError(err)
}

func (c *containerBlobs) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, c.container, name, nil)
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Body, nil
}

func (c *containerBlobs) Delete(ctx context.Context, name string) error {
	_, err := c.client.DeleteBlob(ctx, c.container, name, nil)
	return mapError(err)
}

// mapError translates storage error codes onto the store sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case bloberror.HasCode(err, bloberror.AuthorizationFailure, bloberror.AuthenticationFailed,
		bloberror.AuthorizationPermissionMismatch, bloberror.InsufficientAccountPermissions):
		return fmt.Errorf("%w: %v", store.ErrUnauthorized, err)
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists):
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case nethttp.StatusNotFound:
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		case nethttp.StatusForbidden, nethttp.StatusUnauthorized:
			return fmt.Errorf("%w: %v", store.ErrUnauthorized, err)
		}
	}
	return err
}

// valOrZero returns *p, or the zero value when p is nil.
func valOrZero[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
