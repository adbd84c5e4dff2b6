package s3

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

type fakeClient struct {
	pages   [][]types.Object
	listErr error
	objects map[string][]byte
	inputs  []*s3.ListObjectsV2Input
}

func (f *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}

	idx := 0
	if in.ContinuationToken != nil {
		idx = int(aws.ToString(in.ContinuationToken)[0] - '0')
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + idx + 1)))
	}
	return out, nil
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func object(key string, size int64) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		ETag:         aws.String(`"` + key + `-etag"`),
		LastModified: aws.Time(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
}

func TestStorage_ListPages(t *testing.T) {
	client := &fakeClient{pages: [][]types.Object{
		{object("P001/a.c3d", 10), object("P001/", 0)},
		{object("P002/b.c3d", 20)},
	}}
	s := NewWithClient(client, "c3d-examples", "/P0")

	files, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "P001/a.c3d", files[0].Name)
	assert.Equal(t, "P001/a.c3d-etag", files[0].ID)
	assert.Equal(t, int64(20), files[1].Size)
	assert.Len(t, client.inputs, 2)
	assert.Equal(t, "P0", aws.ToString(client.inputs[0].Prefix))
}

func TestStorage_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		code string
		kind error
	}{
		{"ExpiredToken", records.ErrAuth},
		{"AccessDenied", records.ErrPermission},
		{"NoSuchBucket", records.ErrNotFound},
		{"SlowDown", records.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			client := &fakeClient{listErr: &smithy.GenericAPIError{Code: tt.code}}
			_, err := NewWithClient(client, "bucket", "").List(context.Background())
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestStorage_EmptyAndUnconfigured(t *testing.T) {
	_, err := NewWithClient(&fakeClient{pages: [][]types.Object{{}}}, "bucket", "").List(context.Background())
	assert.ErrorIs(t, err, records.ErrNotFound)

	s, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, s.IsConfigured())
	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, records.ErrConfiguration)
}

func TestStorage_Download(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{"P001/a.c3d": []byte("emg")}}
	s := NewWithClient(client, "bucket", "")

	data, err := s.Download(context.Background(), "P001/a.c3d")
	require.NoError(t, err)
	assert.Equal(t, []byte("emg"), data)

	_, err = s.Download(context.Background(), "P009/x.c3d")
	assert.ErrorIs(t, err, records.ErrNotFound)
}
