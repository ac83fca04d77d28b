package mirror

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	existing map[string]bool
	puts     map[string]*s3.PutObjectInput
	bodies   map[string]string
	headErr  error
}

func newFakeObjects(existing ...string) *fakeObjects {
	f := &fakeObjects{
		existing: make(map[string]bool),
		puts:     make(map[string]*s3.PutObjectInput),
		bodies:   make(map[string]string),
	}
	for _, k := range existing {
		f.existing[k] = true
	}
	return f
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.existing[aws.ToString(in.Key)] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.puts[key] = in
	f.bodies[key] = string(data)
	f.existing[key] = true
	return &s3.PutObjectOutput{}, nil
}

func podcastDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"One.webm":    "one",
		"Two.webm":    "two",
		"podcast.xml": "<rss/>",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestPublish(t *testing.T) {
	dir := podcastDir(t)
	objects := newFakeObjects("feeds/demo/One.webm")
	logger, _ := test.NewNullLogger()
	m := newS3(objects, Config{Bucket: "pods", Prefix: "feeds/"}, logger)

	res, err := m.Publish(context.Background(), "demo", dir, []string{"One.webm", "Two.webm"}, "audio/webm")
	require.NoError(t, err)

	assert.Equal(t, &Result{Uploaded: 2, Existing: 1}, res)
	assert.NotContains(t, objects.puts, "feeds/demo/One.webm")

	two := objects.puts["feeds/demo/Two.webm"]
	require.NotNil(t, two)
	assert.Equal(t, "pods", aws.ToString(two.Bucket))
	assert.Equal(t, "audio/webm", aws.ToString(two.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(two.ContentLength))
	assert.Equal(t, "two", objects.bodies["feeds/demo/Two.webm"])

	feed := objects.puts["feeds/demo/podcast.xml"]
	require.NotNil(t, feed)
	assert.Equal(t, FeedContentType, aws.ToString(feed.ContentType))
	assert.Equal(t, "no-cache", aws.ToString(feed.CacheControl))

	// The feed is uploaded again on every publish, media only once.
	delete(objects.puts, "feeds/demo/podcast.xml")
	res, err = m.Publish(context.Background(), "demo", dir, []string{"One.webm", "Two.webm"}, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, &Result{Uploaded: 1, Existing: 2}, res)
	assert.Contains(t, objects.puts, "feeds/demo/podcast.xml")
}

func TestPublish_HeadError(t *testing.T) {
	objects := newFakeObjects()
	objects.headErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	logger, _ := test.NewNullLogger()
	m := newS3(objects, Config{Bucket: "pods"}, logger)

	_, err := m.Publish(context.Background(), "demo", podcastDir(t), []string{"One.webm"}, "audio/webm")
	require.Error(t, err)

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
	assert.Empty(t, objects.puts)
}

func TestPublish_MissingFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := newS3(newFakeObjects(), Config{Bucket: "pods"}, logger)

	_, err := m.Publish(context.Background(), "demo", t.TempDir(), []string{"Gone.webm"}, "audio/webm")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKey(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Equal(t, "demo/x.webm", newS3(nil, Config{Bucket: "b"}, logger).Key("demo", "x.webm"))
	assert.Equal(t, "p/demo/x.webm", newS3(nil, Config{Bucket: "b", Prefix: "p/"}, logger).Key("demo", "x.webm"))
}

func TestNewS3_RequiresBucket(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewS3(context.Background(), Config{}, logger)
	assert.Error(t, err)
}
