package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client is a minimal in-memory stand-in for the AWS SDK's S3
// client, following the teacher's MockS3Client shape (an Objects map
// plus per-call bookkeeping) narrowed to the methods S3Client declares.
type mockS3Client struct {
	objects map[string][]byte
	err     error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey: not found")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := m.objects[aws.ToString(params.Key)]; !ok {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.err != nil {
		return nil, m.err
	}
	prefix := aws.ToString(params.Prefix)
	var contents []types.Object
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			contents = append(contents, types.Object{
				Key:  aws.String(key),
				Size: aws.Int64(int64(len(data))),
			})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

func TestS3StorePutGet(t *testing.T) {
	client := newMockS3Client()
	store := NewS3StoreWithClient(client, "bucket", "bundles/demo")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "_manifest/00001abc.yaml", []byte("body")))

	data, err := store.Get(ctx, "_manifest/00001abc.yaml")
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestS3StoreGetMissing(t *testing.T) {
	client := newMockS3Client()
	store := NewS3StoreWithClient(client, "bucket", "")

	_, err := store.Get(context.Background(), "missing.yaml")
	require.Error(t, err)

	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestS3StoreList(t *testing.T) {
	client := newMockS3Client()
	store := NewS3StoreWithClient(client, "bucket", "bundles/demo")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "_manifest/00001abc.yaml", []byte("a")))
	require.NoError(t, store.Put(ctx, "_manifest/00002def.yaml", []byte("bb")))

	infos, err := store.List(ctx, "_manifest")
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestS3StorePrefixing(t *testing.T) {
	client := newMockS3Client()
	store := NewS3StoreWithClient(client, "bucket", "bundles/demo")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "block.csv", []byte("x")))
	assert.Contains(t, client.objects, "bundles/demo/block.csv")
}
