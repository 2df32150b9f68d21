// Package s3store implements store.DirectoryStore on an S3 bucket.
//
// Directories are key prefixes ending in "/". An empty "dir/" marker object
// keeps a directory alive when it has no children. Rename is copy + delete.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/http"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/version"
)

// deleteBatch is the DeleteObjects per-request limit.
const deleteBatch = 1000

// API is the subset of *s3.Client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Config describes the bucket to browse.
type Config struct {
	Bucket string
	Region string
	// Prefix confines the store below a key prefix. A trailing "/" is implied.
	Prefix string
	// Endpoint overrides the service endpoint (S3-compatible servers). Path
	// style addressing is used when set.
	Endpoint string
	// Static credentials. When AccessKeyID is empty the default AWS chain
	// (env, shared config, IMDS) is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	HTTPClient *nethttp.Client
	Logger     *logging.Logger
}

// Store is a DirectoryStore over an S3 bucket.
type Store struct {
	api    API
	bucket string
	prefix string
	paths  pathmodel.Model
	logger *logging.Logger
	retry  http.Config
}

var _ store.DirectoryStore = (*Store)(nil)

// New loads the AWS configuration and creates a store for cfg.Bucket.
func New(ctx context.Context, cfg Config, m pathmodel.Model) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithAppID(version.AppID())}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, cfg, m), nil
}

// NewWithAPI creates a store over an existing client.
func NewWithAPI(api API, cfg Config, m pathmodel.Model) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	s := &Store{
		api:    api,
		bucket: cfg.Bucket,
		prefix: prefix,
		paths:  m,
		logger: logger,
	}
	s.retry = http.Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
		OnRetry: func(attempt int, err error, errorType http.ErrorType) {
			s.logger.Debug().Int("attempt", attempt).Str("type", http.ErrorTypeName(errorType)).Err(err).Msg("Retrying S3 request")
		},
	}
	return s
}

// SetRetry replaces the retry policy applied to each request.
func (s *Store) SetRetry(cfg http.Config) { s.retry = cfg }

func (s *Store) do(ctx context.Context, fn func() error) error {
	return http.ExecuteWithRetry(ctx, s.retry, func() error {
		return mapError(fn())
	})
}

// key maps a browser path to an object key (no trailing slash).
func (s *Store) key(path string) string {
	return s.prefix + strings.Join(s.paths.Split(path), "/")
}

// dirKey maps a browser path to its directory prefix ("a/b/", or the store
// prefix for the root).
func (s *Store) dirKey(path string) string {
	if s.paths.IsRoot(path) {
		return s.prefix
	}
	return s.key(path) + "/"
}

// mapError translates S3 API errors onto the store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %v", store.ErrUnauthorized, err)
		}
	}
	return err
}

// objectExists reports whether key names an object.
func (s *Store) objectExists(ctx context.Context, key string) (bool, error) {
	err := s.do(ctx, func() error {
		_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// dirExists reports whether path is the root, has a marker, or has children.
func (s *Store) dirExists(ctx context.Context, path string) (bool, error) {
	if s.paths.IsRoot(path) {
		return true, nil
	}
	var out *s3.ListObjectsV2Output
	err := s.do(ctx, func() error {
		var err error
		out, err = s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(s.dirKey(path)),
			MaxKeys: aws.Int32(1),
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

// keysUnder returns every object key with the given prefix.
func (s *Store) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := s.do(ctx, func() error {
			var err error
			page, err = p.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// List implements store.DirectoryStore.
func (s *Store) List(ctx context.Context, path string) (store.Listing, error) {
	prefix := s.dirKey(path)
	listing := store.Listing{Dirs: []string{}, Files: []string{}}
	found := s.paths.IsRoot(path)

	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := s.do(ctx, func() error {
			var err error
			page, err = p.NextPage(ctx)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return store.Listing{}, err
			}
			return store.Listing{}, fmt.Errorf("%s: %w: %v", path, store.ErrInvalidDirectory, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				listing.Dirs = append(listing.Dirs, name)
			}
			found = true
		}
		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue // marker
			}
			listing.Files = append(listing.Files, name)
		}
	}

	if !found {
		return store.Listing{}, fmt.Errorf("%s: %w", path, store.ErrInvalidDirectory)
	}
	return listing, nil
}

// Exists implements store.DirectoryStore.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if s.paths.IsRoot(path) {
		return true, nil
	}
	ok, err := s.objectExists(ctx, s.key(path))
	if err != nil || ok {
		return ok, err
	}
	return s.dirExists(ctx, path)
}

func (s *Store) put(ctx context.Context, key string, open func() (io.Reader, int64, error)) error {
	return s.do(ctx, func() error {
		body, size, err := open()
		if err != nil {
			return err
		}
		in := &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   body,
		}
		if size >= 0 {
			in.ContentLength = aws.Int64(size)
		}
		_, err = s.api.PutObject(ctx, in)
		return err
	})
}

func emptyBody() (io.Reader, int64, error) {
	return bytes.NewReader(nil), 0, nil
}

// Create implements store.DirectoryStore.
func (s *Store) Create(ctx context.Context, kind store.Kind, path string) error {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", path, store.ErrAlreadyExists)
	}
	if err := s.requireDir(ctx, s.paths.Parent(path)); err != nil {
		return err
	}

	key := s.key(path)
	if kind == store.KindDirectory {
		key += "/"
	}
	if err := s.put(ctx, key, emptyBody); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

func (s *Store) requireDir(ctx context.Context, path string) error {
	ok, err := s.dirExists(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return nil
}

// Copy implements store.DirectoryStore. Directories are copied key by key.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	pairs, err := s.transferPairs(ctx, src, dest)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := s.copyObject(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}
	}
	return nil
}

// Rename implements store.DirectoryStore as copy then delete.
func (s *Store) Rename(ctx context.Context, src, dest string) error {
	pairs, err := s.transferPairs(ctx, src, dest)
	if err != nil {
		return err
	}
	sources := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if err := s.copyObject(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("failed to rename %s: %w", src, err)
		}
		sources = append(sources, p[0])
	}
	if err := s.deleteKeys(ctx, sources); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}

// transferPairs validates a copy or rename and returns (from, to) key pairs.
func (s *Store) transferPairs(ctx context.Context, src, dest string) ([][2]string, error) {
	if s.paths.Within(dest, src) {
		return nil, fmt.Errorf("cannot move %s into itself", src)
	}
	exists, err := s.Exists(ctx, dest)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", dest, store.ErrAlreadyExists)
	}
	if err := s.requireDir(ctx, s.paths.Parent(dest)); err != nil {
		return nil, err
	}

	srcKey, destKey := s.key(src), s.key(dest)
	isFile, err := s.objectExists(ctx, srcKey)
	if err != nil {
		return nil, err
	}
	if isFile {
		return [][2]string{{srcKey, destKey}}, nil
	}

	keys, err := s.keysUnder(ctx, s.dirKey(src))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: %w", src, store.ErrNotFound)
	}
	srcDir, destDir := s.dirKey(src), s.dirKey(dest)
	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, destDir + strings.TrimPrefix(k, srcDir)})
	}
	return pairs, nil
}

func (s *Store) copyObject(ctx context.Context, from, to string) error {
	return s.do(ctx, func() error {
		_, err := s.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(url.PathEscape(s.bucket + "/" + from)),
			Key:        aws.String(to),
		})
		return err
	})
}

func (s *Store) deleteKeys(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		var out *s3.DeleteObjectsOutput
		err := s.do(ctx, func() error {
			var err error
			out, err = s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			return err
		})
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

// Delete implements store.DirectoryStore. Directories are removed with all
// keys below them.
func (s *Store) Delete(ctx context.Context, path string) error {
	if s.paths.IsRoot(path) {
		return fmt.Errorf("cannot delete root: %w", store.ErrUnauthorized)
	}
	key := s.key(path)
	isFile, err := s.objectExists(ctx, key)
	if err != nil {
		return err
	}
	var keys []string
	if isFile {
		keys = []string{key}
	}
	under, err := s.keysUnder(ctx, key+"/")
	if err != nil {
		return err
	}
	keys = append(keys, under...)
	if len(keys) == 0 {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if err := s.deleteKeys(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Int("objects", len(keys)).Msg("Deleted")
	return nil
}

// Upload implements store.DirectoryStore. Prefixes need no creation; an
// existing object is replaced.
func (s *Store) Upload(ctx context.Context, file store.File, destDir string) error {
	target := s.paths.Join(destDir, file.Name())
	isDir, err := s.dirExists(ctx, target)
	if err != nil {
		return err
	}
	if isDir {
		return fmt.Errorf("%s: %w", target, store.ErrAlreadyExists)
	}

	var rc io.ReadCloser
	defer func() {
		if rc != nil {
			rc.Close()
		}
	}()
	err = s.put(ctx, s.key(target), func() (io.Reader, int64, error) {
		// A retry needs the body from the start.
		if rc != nil {
			rc.Close()
		}
		var err error
		rc, err = file.Open()
		if err != nil {
			return nil, 0, fmt.Errorf("open %s: %w", file.Name(), err)
		}
		if rs, ok := rc.(io.ReadSeeker); ok {
			return rs, file.Size(), nil
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", file.Name(), err)
		}
		return bytes.NewReader(data), int64(len(data)), nil
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Name(), err)
	}
	return nil
}

// HomeDir implements store.DirectoryStore.
func (s *Store) HomeDir(ctx context.Context, path string) (string, error) {
	if path != "" {
		return s.paths.Normalize(path), nil
	}
	return s.paths.Root(), nil
}
