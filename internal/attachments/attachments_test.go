package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-hub/internal/config"
)

type fakeObjects struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeObjects) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func fixedStore(objects objectAPI) *S3Store {
	store := newS3Store(objects, "cmms-attachments")
	store.now = func() time.Time { return time.Unix(1792144800, 0).UTC() }
	return store
}

func TestS3Store_Put(t *testing.T) {
	objects := &fakeObjects{}
	store := fixedStore(objects)

	key, err := store.Put(context.Background(), "MR-202610-0001", "pump photo.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "requests/MR-202610-0001/1792144800_pump_photo.png", key)

	require.NotNil(t, objects.input)
	assert.Equal(t, "cmms-attachments", aws.ToString(objects.input.Bucket))
	assert.Equal(t, key, aws.ToString(objects.input.Key))
	assert.Equal(t, "image/png", aws.ToString(objects.input.ContentType))
	assert.Equal(t, int64(9), aws.ToInt64(objects.input.ContentLength))
	assert.Equal(t, "png-bytes", objects.body)
}

func TestS3Store_PutRejections(t *testing.T) {
	store := fixedStore(&fakeObjects{})
	ctx := context.Background()

	_, err := store.Put(ctx, "MR-202610-0001", "a.txt", "", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = store.Put(ctx, "MR-202610-0001", "a.bin", "", strings.NewReader("x"), MaxSize+1)
	assert.Error(t, err)

	failing := fixedStore(&fakeObjects{err: errors.New("AccessDenied")})
	_, err = failing.Put(ctx, "MR-202610-0001", "a.txt", "text/plain", strings.NewReader("x"), 1)
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestS3Store_DefaultContentType(t *testing.T) {
	objects := &fakeObjects{}
	_, err := fixedStore(objects).Put(context.Background(), "MR-202610-0001", "log", "", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", aws.ToString(objects.input.ContentType))
}

func TestS3Store_URL(t *testing.T) {
	store := fixedStore(&fakeObjects{})
	_, err := store.URL(context.Background(), "k")
	assert.Error(t, err)

	store.presign = func(_ context.Context, key string) (string, error) {
		return "https://example.test/" + key + "?sig=1", nil
	}
	url, err := store.URL(context.Background(), "requests/x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/requests/x?sig=1", url)
}

func TestKey(t *testing.T) {
	at := time.Unix(100, 0)
	tests := map[string]string{
		"report.pdf":          "requests/MR-1/100_report.pdf",
		"../../etc/passwd":    "requests/MR-1/100_passwd",
		`C:\photos\leak.jpg`:  "requests/MR-1/100_leak.jpg",
		"weird name (1).jpeg": "requests/MR-1/100_weird_name_1_.jpeg",
		"...":                 "requests/MR-1/100_file",
	}
	for in, want := range tests {
		assert.Equal(t, want, Key("MR-1", in, at), in)
	}
}

func TestNewS3Store_CustomEndpoint(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.S3Config{
		Region:          "us-east-1",
		Bucket:          "cmms",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Endpoint:        "http://localhost:9000",
	})
	require.NoError(t, err)

	url, err := store.URL(context.Background(), "requests/MR-1/1_a.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/cmms/requests/MR-1/1_a.png?"), url)
}

func TestBelongsTo(t *testing.T) {
	assert.True(t, BelongsTo("requests/MR-202610-0001/1_a.png", "MR-202610-0001"))
	assert.False(t, BelongsTo("requests/MR-202610-0002/1_a.png", "MR-202610-0001"))
	assert.False(t, BelongsTo("requests/MR-202610-0001/../MR-202610-0002/1_a.png", "MR-202610-0001"))
	assert.False(t, BelongsTo("", "MR-202610-0001"))
}
