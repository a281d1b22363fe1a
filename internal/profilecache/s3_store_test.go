package profilecache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/patient-records-viewer/internal/records"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "viewer-cache", "profile-cache.json")
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded, "missing object should load as empty map")

	entries := map[string]Entry{
		"jane": {Status: StatusReady, Summary: records.Summary{MedicationSummary: "None."}},
	}
	require.NoError(t, store.Save(ctx, entries))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "None.", loaded["jane"].Summary.MedicationSummary)
}

func TestS3StoreCorruptObject(t *testing.T) {
	client := newFakeS3()
	client.objects["profile-cache.json"] = []byte("not json")

	_, err := NewS3Store(client, "viewer-cache", "profile-cache.json").Load(context.Background())
	require.Error(t, err)
}

func TestS3StoreSurfacesOtherErrors(t *testing.T) {
	client := newFakeS3()
	client.getErr = errors.New("access denied")

	_, err := NewS3Store(client, "viewer-cache", "profile-cache.json").Load(context.Background())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestS3StoreDefaultKey(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "viewer-cache", "")

	require.NoError(t, store.Save(context.Background(), map[string]Entry{}))
	require.Contains(t, client.objects, defaultS3Key)
}
