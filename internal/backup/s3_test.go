package backup

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParseS3BucketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw       string
		wantBkt   string
		wantPre   string
		errSubstr string
	}{
		{raw: "s3://my-bucket", wantBkt: "my-bucket"},
		{raw: "s3://my-bucket/flashdeck/backups/", wantBkt: "my-bucket", wantPre: "flashdeck/backups"},
		{raw: "https://my-bucket/flashdeck", errSubstr: "s3:// scheme"},
		{raw: "s3:///flashdeck", errSubstr: "missing bucket"},
	}

	for _, tt := range tests {
		gotBkt, gotPre, err := parseS3BucketURL(tt.raw)
		if tt.errSubstr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("parseS3BucketURL(%q) err = %v, want substring %q", tt.raw, err, tt.errSubstr)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseS3BucketURL(%q): %v", tt.raw, err)
			continue
		}
		if gotBkt != tt.wantBkt || gotPre != tt.wantPre {
			t.Errorf("parseS3BucketURL(%q) = %q, %q, want %q, %q", tt.raw, gotBkt, gotPre, tt.wantBkt, tt.wantPre)
		}
	}
}

func TestNewS3Uploader_MissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewS3Uploader(S3Config{BucketURL: "s3://my-bucket/flashdeck"})
	if err == nil || !strings.Contains(err.Error(), "access key") {
		t.Fatalf("err = %v, want missing credentials", err)
	}
}

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", true, ""},
		{"minio.local:9000", false, "http://minio.local:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://already.set", true, "http://already.set"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.endpoint, tt.ssl); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.ssl, got, tt.want)
		}
	}
}

type recordedRun struct {
	env  []string
	name string
	args []string
}

func TestUploadFile_BuildsCommand(t *testing.T) {
	t.Parallel()

	var got recordedRun
	run := func(_ context.Context, env []string, name string, args ...string) ([]byte, error) {
		got = recordedRun{env: env, name: name, args: args}
		return nil, nil
	}
	u := newS3Uploader("decks", "nightly", S3Config{
		Endpoint:     "minio.local:9000",
		AccessKey:    "AK",
		SecretKey:    "SK",
		SessionToken: "TOK",
	}, run)

	if err := u.UploadFile(context.Background(), "/var/backups/flashdeck-1.json"); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if got.name != "aws" {
		t.Fatalf("command = %q, want aws", got.name)
	}
	wantArgs := []string{
		"s3", "cp", "/var/backups/flashdeck-1.json", "s3://decks/nightly/flashdeck-1.json",
		"--region", "us-east-1", "--only-show-errors", "--endpoint-url", "http://minio.local:9000",
	}
	if !slices.Equal(got.args, wantArgs) {
		t.Fatalf("args = %v, want %v", got.args, wantArgs)
	}
	for _, kv := range []string{"AWS_ACCESS_KEY_ID=AK", "AWS_SECRET_ACCESS_KEY=SK", "AWS_SESSION_TOKEN=TOK", "AWS_DEFAULT_REGION=us-east-1"} {
		if !slices.Contains(got.env, kv) {
			t.Errorf("env missing %s: %v", kv, got.env)
		}
	}
}

func TestUploadFile_ReportsOutput(t *testing.T) {
	t.Parallel()

	run := func(context.Context, []string, string, ...string) ([]byte, error) {
		return []byte("AccessDenied\n"), errors.New("exit status 1")
	}
	u := newS3Uploader("decks", "", S3Config{AccessKey: "AK", SecretKey: "SK"}, run)

	err := u.UploadFile(context.Background(), "/tmp/x.duckdb")
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("err = %v, want the aws output", err)
	}
	if d := u.Destination("/tmp/x.duckdb"); d != "s3://decks/x.duckdb" {
		t.Fatalf("Destination = %q", d)
	}
}
