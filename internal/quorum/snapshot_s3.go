package quorum

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// S3SnapshotStore is a ports.SnapshotStore backed by an S3 bucket, one of
// the pluggable transports behind the dump/restore opcodes (spec §9 Open
// Question #4). Grounded on evalgo-org-eve/tracing/archival.go's
// ArchivalManager, which holds a *s3.Client field and issues
// PutObject/GetObject calls the same way.
type S3SnapshotStore struct {
	client     *s3.Client
	bucket     string
	prefix     string
	storageCls types.StorageClass
}

// S3SnapshotStoreConfig configures an S3SnapshotStore.
type S3SnapshotStoreConfig struct {
	Bucket       string
	Prefix       string // key prefix, e.g. "quorum-snapshots/"
	StorageClass types.StorageClass
}

// NewS3SnapshotStore constructs an S3SnapshotStore from an already-loaded
// aws.Config (the caller is expected to have resolved it via
// config.LoadDefaultConfig, same as archival.go's callers do).
func NewS3SnapshotStore(cfg aws.Config, scfg S3SnapshotStoreConfig) *S3SnapshotStore {
	storageCls := scfg.StorageClass
	if storageCls == "" {
		storageCls = types.StorageClassStandard
	}
	return &S3SnapshotStore{
		client:     s3.NewFromConfig(cfg),
		bucket:     scfg.Bucket,
		prefix:     scfg.Prefix,
		storageCls: storageCls,
	}
}

var _ ports.SnapshotStore = (*S3SnapshotStore)(nil)

func (s *S3SnapshotStore) objectKey(key string) string {
	return s.prefix + key
}

// Snapshot fetches the object for key. A missing object is reported as a
// nil snapshot and nil error (matching RedisNode.Dump's treatment of a
// missing key), since "no snapshot exists yet" is not a store failure.
func (s *S3SnapshotStore) Snapshot(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
			return nil, nil
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Install uploads snapshot under key. S3 has no native per-object TTL
// comparable to Redis's EXPIRE; ttl is instead recorded as object metadata
// for a bucket lifecycle rule to act on, keeping the expiry mechanism
// opaque to callers of the port.
func (s *S3SnapshotStore) Install(ctx context.Context, key string, ttl time.Duration, snapshot []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.objectKey(key)),
		Body:         bytes.NewReader(snapshot),
		StorageClass: s.storageCls,
		Metadata: map[string]string{
			"ttl_seconds": strconv.FormatInt(int64(ttl.Seconds()), 10),
		},
	})
	return err
}
