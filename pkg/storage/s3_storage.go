package storage

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/defaults"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage implements the Storage interface for interacting with AWS S3.
type S3Storage struct {
	Config  Config
	Session *session.Session
}

// NewS3Storage creates a new S3Storage with a new aws.Session.
func NewS3Storage(config Config) S3Storage {
	return S3Storage{
		Config:  config,
		Session: newAWSSession(config),
	}
}

// NewS3StorageWithSession returns a new S3Storage with a given AWS Session.
func NewS3StorageWithSession(config Config,
	session *session.Session) S3Storage {

	return S3Storage{
		Config:  config,
		Session: session,
	}
}

// Write writes the data to the key in the S3 Bucket, with Options applied.
// S3 replaces an object in a single put, so the write is atomic.
func (s S3Storage) Write(ctx context.Context,
	key string,
	body []byte,
	options *Options) error {

	svc := s3.New(s.Session)

	poi := s3.PutObjectInput{
		Bucket: aws.String(s.Config.Bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(body),
	}

	if options != nil && options.TTL > 0 {
		expiry := time.Now().Add(time.Duration(options.TTL) * time.Second)
		poi.Expires = &expiry
	}

	if _, err := svc.PutObjectWithContext(ctx, &poi); err != nil {
		return fmt.Errorf("Failed to write to %v : %v", key, err)
	}

	return nil
}

// Read will read the data from the S3 Bucket.
func (s S3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	svc := s3.New(s.Session)

	document, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("Failed to read from %v : %v", key, err)
	}
	defer document.Body.Close()

	b, err := ioutil.ReadAll(document.Body)
	if err != nil {
		return nil, fmt.Errorf("Error reading body : %v", err)
	}

	return b, nil
}

// Remove removes the object stored at key, in the S3 Bucket.
func (s S3Storage) Remove(ctx context.Context, key string) error {
	svc := s3.New(s.Session)

	do := &s3.DeleteObjectInput{
		Bucket: aws.String(s.Config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	}

	if _, err := svc.DeleteObjectWithContext(ctx, do); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}

		return fmt.Errorf("Failed to delete object at %v : %v", key, err)
	}

	return nil
}

// Search downloads every object directly under the "path" in the query.
func (s S3Storage) Search(ctx context.Context,
	query map[string]string) ([][]byte, error) {

	keys, err := s.findKeys(ctx, query["path"])
	if err != nil {
		return nil, err
	}

	svc := s3manager.NewDownloader(s.Session)

	buffers := make([]*aws.WriteAtBuffer, len(keys))
	objects := make([]s3manager.BatchDownloadObject, len(keys))

	bucket := &s.Config.Bucket

	for i, k := range keys {
		buffers[i] = aws.NewWriteAtBuffer([]byte{})
		objects[i] = s3manager.BatchDownloadObject{
			Object: &s3.GetObjectInput{
				Bucket: bucket,
				Key:    aws.String(k),
			},
			Writer: buffers[i],
		}
	}

	iter := &s3manager.DownloadObjectsIterator{Objects: objects}

	if err := svc.DownloadWithIterator(ctx, iter); err != nil {
		return nil, err
	}

	result := make([][]byte, len(buffers))
	for i, b := range buffers {
		result[i] = b.Bytes()
	}

	return result, nil
}

// List returns the keys directly under a path.
func (s S3Storage) List(ctx context.Context, path string) ([]string, error) {
	keys, err := s.findKeys(ctx, path)
	if err != nil {
		return nil, err
	}

	prefix := s.objectKey("")
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, prefix)
	}

	return keys, nil
}

// Clear removes every object directly under the "path" in the query.
func (s S3Storage) Clear(ctx context.Context, query map[string]string) error {
	keys, err := s.findKeys(ctx, query["path"])
	if err != nil {
		return err
	}

	svc := s3manager.NewBatchDelete(s.Session)

	objects := make([]s3manager.BatchDeleteObject, len(keys))

	bucket := &s.Config.Bucket

	for i, k := range keys {
		objects[i] = s3manager.BatchDeleteObject{
			Object: &s3.DeleteObjectInput{
				Bucket: bucket,
				Key:    aws.String(k),
			},
		}
	}

	iter := &s3manager.DeleteObjectsIterator{Objects: objects}

	return svc.Delete(ctx, iter)
}

func (s S3Storage) findKeys(ctx context.Context,
	path string) ([]string, error) {

	svc := s3.New(s.Session)

	prefix := s.objectKey(path)
	if len(path) > 0 && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.Config.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	keys := []string{}
	err := svc.ListObjectsV2PagesWithContext(ctx, input,
		func(out *s3.ListObjectsV2Output, last bool) bool {
			for _, o := range out.Contents {
				keys = append(keys, *o.Key)
			}
			return true
		})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// objectKey prefixes the key with the configured root.
func (s S3Storage) objectKey(key string) string {
	root := strings.Trim(s.Config.Root, "/")
	if len(root) == 0 || root == "." {
		return key
	}

	return root + "/" + key
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}

	return strings.HasPrefix(err.Error(), "NoSuchKey")
}

// newAWSSession creates a new AWS Session from the credentials in the
// Config.
func newAWSSession(config Config) *session.Session {
	// Get the default cred chain
	awsDefaults := defaults.Get()
	defaultCredProviders := defaults.CredProviders(awsDefaults.Config, awsDefaults.Handlers)

	// Static creds take priority when supplied.
	providers := defaultCredProviders
	if len(config.AccessKey) > 0 {
		staticCreds := &credentials.StaticProvider{Value: credentials.Value{
			AccessKeyID:     config.AccessKey,
			SecretAccessKey: config.Secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		}}
		providers = append([]credentials.Provider{staticCreds}, defaultCredProviders...)
	}
	creds := credentials.NewChainCredentials(providers)

	awsConfig := aws.NewConfig().
		WithCredentials(creds).
		WithMaxRetries(config.MaxRetries)

	if len(config.Region) > 0 {
		awsConfig = awsConfig.WithRegion(config.Region)
	}

	return session.Must(session.NewSession(awsConfig))
}
