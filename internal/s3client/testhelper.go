package s3client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// FakeServer is an in-memory S3 endpoint for tests.
type FakeServer struct {
	URL string
}

// StartFake serves gofakes3 over httptest with bucket already created.
// The server is closed when the test completes.
func StartFake(t testing.TB, bucket string) *FakeServer {
	t.Helper()

	ts := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
	t.Cleanup(ts.Close)

	c, err := New(context.Background(), fakeConfig(ts.URL, bucket))
	if err != nil {
		t.Fatalf("s3 client for fake: %v", err)
	}
	if _, err := c.s3.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		t.Fatalf("create test bucket: %v", err)
	}
	return &FakeServer{URL: ts.URL}
}

// TestClient returns a Client backed by a fresh gofakes3 bucket.
func TestClient(t testing.TB, bucket string) *Client {
	t.Helper()

	fake := StartFake(t, bucket)
	c, err := New(context.Background(), fakeConfig(fake.URL, bucket))
	if err != nil {
		t.Fatalf("s3 client: %v", err)
	}
	return c
}

func fakeConfig(endpoint, bucket string) Config {
	return Config{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Bucket:          bucket,
		UsePathStyle:    true,
	}
}
