package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/tansive/metacatalog/internal/catalogsrv/security"
)

const (
	S3Scheme  = "s3"
	S3AScheme = "s3a"

	S3EndpointKey        = "s3-endpoint"
	S3RegionKey          = "s3-region"
	S3AccessKeyIDKey     = "s3-access-key-id"
	S3SecretAccessKeyKey = "s3-secret-access-key"

	defaultS3Region = "us-east-1"
	ownerMetadata   = "owner"
	maxDeleteBatch  = 1000
)

// s3FS maps directories onto zero length marker objects whose key ends in a
// slash. The marker records the owner in its metadata.
type s3FS struct {
	loc    *url.URL
	client *s3.Client
	owner  string
}

func openS3(_ context.Context, loc *url.URL, id security.Identity, props map[string]string) (FileSystem, error) {
	if loc.Host == "" {
		return nil, pathError("open", loc.String(), fs.ErrInvalid)
	}
	region := props[S3RegionKey]
	if region == "" {
		region = defaultS3Region
	}
	opts := s3.Options{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
	}
	if key := props[S3AccessKeyIDKey]; key != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(key, props[S3SecretAccessKeyKey], "")
	}
	if ep := props[S3EndpointKey]; ep != "" {
		opts.BaseEndpoint = aws.String(ep)
		opts.UsePathStyle = true
	}
	owner := id.User
	if owner == "" {
		owner = processUser()
	}
	return &s3FS{loc: loc, client: s3.New(opts), owner: owner}, nil
}

// key returns the object key prefix of a directory location, ending in a
// slash, or the empty string for the bucket root.
func (s *s3FS) key(location string) (string, error) {
	loc, err := parseScheme(location, S3Scheme, S3AScheme)
	if err != nil {
		return "", err
	}
	if loc.Host != s.loc.Host {
		return "", pathError("open", location, fs.ErrInvalid)
	}
	k := strings.TrimPrefix(loc.Path, "/")
	if k == "" {
		return "", nil
	}
	return k + "/", nil
}

func (s *s3FS) uri(key string) string {
	return withPath(s.loc, "/"+strings.TrimSuffix(key, "/"))
}

func (s *s3FS) MkdirAll(ctx context.Context, location string) error {
	key, err := s.key(location)
	if err != nil {
		return err
	}
	// Markers are created from the leaf up so that existing parents keep
	// their owner.
	for dir := key; dir != ""; dir = parentKey(dir) {
		ok, err := s.markerExists(ctx, dir)
		if err != nil {
			return s3Error("mkdir", s.uri(dir), err)
		}
		if ok {
			break
		}
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:   aws.String(s.loc.Host),
			Key:      aws.String(dir),
			Body:     strings.NewReader(""),
			Metadata: map[string]string{ownerMetadata: s.owner},
		})
		if err != nil {
			return s3Error("mkdir", s.uri(dir), err)
		}
	}
	return nil
}

func (s *s3FS) Exists(ctx context.Context, location string) (bool, error) {
	key, err := s.key(location)
	if err != nil {
		return false, err
	}
	if key == "" {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.loc.Host)})
		if err != nil {
			if isS3NotFound(err) {
				return false, nil
			}
			return false, s3Error("stat", location, err)
		}
		return true, nil
	}
	ok, err := s.markerExists(ctx, key)
	if err != nil || ok {
		return ok, s3Error("stat", location, err)
	}
	ok, err = s.hasChildren(ctx, key)
	return ok, s3Error("stat", location, err)
}

func (s *s3FS) Stat(ctx context.Context, location string) (*FileInfo, error) {
	key, err := s.key(location)
	if err != nil {
		return nil, err
	}
	if key == "" {
		ok, err := s.Exists(ctx, location)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pathError("stat", location, fs.ErrNotExist)
		}
		return &FileInfo{Path: s.uri(""), IsDir: true}, nil
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.loc.Host),
		Key:    aws.String(key),
	})
	if err == nil {
		return &FileInfo{Path: s.uri(key), Owner: out.Metadata[ownerMetadata], IsDir: true}, nil
	}
	if !isS3NotFound(err) {
		return nil, s3Error("stat", location, err)
	}
	file := strings.TrimSuffix(key, "/")
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.loc.Host),
		Key:    aws.String(file),
	}); err == nil {
		return &FileInfo{Path: s.uri(file)}, nil
	}
	ok, err := s.hasChildren(ctx, key)
	if err != nil {
		return nil, s3Error("stat", location, err)
	}
	if !ok {
		return nil, pathError("stat", location, fs.ErrNotExist)
	}
	return &FileInfo{Path: s.uri(key), IsDir: true}, nil
}

func (s *s3FS) List(ctx context.Context, location string) ([]FileInfo, error) {
	key, err := s.key(location)
	if err != nil {
		return nil, err
	}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.loc.Host),
		Prefix:    aws.String(key),
		Delimiter: aws.String("/"),
	})
	var out []FileInfo
	found := false
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s3Error("readdir", location, err)
		}
		for _, cp := range page.CommonPrefixes {
			found = true
			out = append(out, FileInfo{Path: s.uri(aws.ToString(cp.Prefix)), IsDir: true})
		}
		for _, obj := range page.Contents {
			found = true
			k := aws.ToString(obj.Key)
			if k == key {
				continue
			}
			out = append(out, FileInfo{Path: s.uri(k)})
		}
	}
	if !found && key != "" {
		return nil, pathError("readdir", location, fs.ErrNotExist)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *s3FS) RemoveAll(ctx context.Context, location string) error {
	key, err := s.key(location)
	if err != nil {
		return err
	}
	if key == "" {
		return pathError("remove", location, fs.ErrPermission)
	}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.loc.Host),
		Prefix: aws.String(key),
	})
	var batch []s3types.ObjectIdentifier
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return s3Error("remove", location, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, s3types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == maxDeleteBatch {
				if err := s.deleteBatch(ctx, batch); err != nil {
					return s3Error("remove", location, err)
				}
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		if err := s.deleteBatch(ctx, batch); err != nil {
			return s3Error("remove", location, err)
		}
	}
	return nil
}

func (s *s3FS) deleteBatch(ctx context.Context, objs []s3types.ObjectIdentifier) error {
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.loc.Host),
		Delete: &s3types.Delete{Objects: objs, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return err
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return &smithy.GenericAPIError{Code: aws.ToString(e.Code), Message: aws.ToString(e.Key) + ": " + aws.ToString(e.Message)}
	}
	return nil
}

func (s *s3FS) markerExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.loc.Host),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *s3FS) hasChildren(ctx context.Context, key string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.loc.Host),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

func (s *s3FS) Close() error {
	return nil
}

func parentKey(key string) string {
	dir := path.Dir(strings.TrimSuffix(key, "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

// s3Error attaches the io/fs error class of an S3 API failure so that
// Translate can classify it.
func s3Error(op, location string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return pathError(op, location, fmt.Errorf("%w: %w", fs.ErrNotExist, err))
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return pathError(op, location, fmt.Errorf("%w: %w", fs.ErrPermission, err))
		}
	}
	return pathError(op, location, err)
}

func init() {
	Register(S3Scheme, openS3)
	Register(S3AScheme, openS3)
}
