package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 records PutObject calls.
type fakeS3 struct {
	putErr error
	bucket string
	key    string
	body   []byte
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.bucket = *params.Bucket
	f.key = *params.Key
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestArchiverUploadsReport(t *testing.T) {
	fake := &fakeS3{}
	a := &Archiver{client: fake, cfg: S3Config{Bucket: "assay-reports", Prefix: "nightly/"}}

	report := &RunReport{RunID: "run-9", Outcome: OutcomePassed, FailedStep: -1}
	key, err := a.Archive(context.Background(), report)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	if key != "nightly/run-9.json" {
		t.Errorf("key = %q", key)
	}
	if fake.bucket != "assay-reports" || fake.key != key {
		t.Errorf("put bucket/key = %q / %q", fake.bucket, fake.key)
	}

	var decoded RunReport
	if err := json.Unmarshal(fake.body, &decoded); err != nil {
		t.Fatalf("uploaded body is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-9" || decoded.Outcome != OutcomePassed {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestArchiverNoPrefix(t *testing.T) {
	fake := &fakeS3{}
	a := &Archiver{client: fake, cfg: S3Config{Bucket: "b"}}

	key, err := a.Archive(context.Background(), &RunReport{RunID: "run-1", FailedStep: -1})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if key != "run-1.json" {
		t.Errorf("key = %q", key)
	}
}

func TestArchiverUploadFailure(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("access denied")}
	a := &Archiver{client: fake, cfg: S3Config{Bucket: "b"}}

	_, err := a.Archive(context.Background(), &RunReport{RunID: "run-1", FailedStep: -1})
	if err == nil || !strings.Contains(err.Error(), "s3://b/run-1.json") {
		t.Fatalf("err = %v", err)
	}
}

func TestS3ConfigValidate(t *testing.T) {
	if err := (&S3Config{}).Validate(); err == nil {
		t.Error("missing bucket should be rejected")
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
