package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
)

// S3Config holds the bucket and static credentials for uploads.
type S3Config struct {
	BucketURL    string // s3://bucket/prefix, prefix optional
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool
}

// runFunc runs an external command and returns its combined output.
type runFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// S3Uploader copies backup files to S3 with `aws s3 cp`.
type S3Uploader struct {
	bucket string
	prefix string
	cfg    S3Config
	run    runFunc
}

// NewS3Uploader checks cfg and that the aws CLI is installed.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	bucket, prefix, err := parseS3BucketURL(cfg.BucketURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("backup: s3 access key and secret key are required")
	}
	if _, err := exec.LookPath("aws"); err != nil {
		return nil, errors.New("backup: aws cli not found in PATH")
	}
	return newS3Uploader(bucket, prefix, cfg, runCommand), nil
}

func newS3Uploader(bucket, prefix string, cfg S3Config, run runFunc) *S3Uploader {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Uploader{bucket: bucket, prefix: prefix, cfg: cfg, run: run}
}

// UploadFile copies localPath to the bucket under the configured prefix.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) error {
	out, err := u.run(ctx, u.env(), "aws", u.args(localPath)...)
	if err != nil {
		return fmt.Errorf("backup: aws s3 cp: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Destination is the s3:// URL a local file is copied to.
func (u *S3Uploader) Destination(localPath string) string {
	return "s3://" + u.bucket + "/" + path.Join(u.prefix, path.Base(localPath))
}

func (u *S3Uploader) args(localPath string) []string {
	args := []string{"s3", "cp", localPath, u.Destination(localPath), "--region", u.cfg.Region, "--only-show-errors"}
	if endpoint := endpointURL(u.cfg.Endpoint, u.cfg.UseSSL); endpoint != "" {
		args = append(args, "--endpoint-url", endpoint)
	}
	return args
}

func (u *S3Uploader) env() []string {
	env := []string{
		"AWS_ACCESS_KEY_ID=" + u.cfg.AccessKey,
		"AWS_SECRET_ACCESS_KEY=" + u.cfg.SecretKey,
		"AWS_DEFAULT_REGION=" + u.cfg.Region,
	}
	if token := strings.TrimSpace(u.cfg.SessionToken); token != "" {
		env = append(env, "AWS_SESSION_TOKEN="+token)
	}
	return env
}

// endpointURL adds a scheme to a bare host so S3-compatible stores work.
func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return ""
	case strings.Contains(endpoint, "://"):
		return endpoint
	case useSSL:
		return "https://" + endpoint
	default:
		return "http://" + endpoint
	}
}

func parseS3BucketURL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("backup: parse bucket-url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", errors.New("backup: bucket-url must use s3:// scheme")
	}
	if u.Host == "" {
		return "", "", errors.New("backup: bucket-url missing bucket name")
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
