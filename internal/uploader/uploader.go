// Package uploader ships finished transcripts to S3.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/john/chatqa/internal/recorder"
)

// ObjectPutter is the part of the S3 client the uploader needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures an Uploader
type Options struct {
	Bucket   string
	Region   string
	Endpoint string // For S3-compatible services

	// Credentials: RoleARN uses Fly.io OIDC web identity, static keys are
	// the legacy path, and neither falls back to the default chain.
	RoleARN         string
	AccessKeyID     string
	SecretAccessKey string

	DeleteAfterUpload bool
	MaxRetries        int
}

// Uploader uploads transcript files to S3
type Uploader struct {
	client      ObjectPutter
	bucket      string
	deleteAfter bool
	maxRetries  int
	retryDelay  time.Duration
}

// flyTokenRetriever implements stscreds.IdentityTokenRetriever for Fly.io OIDC
type flyTokenRetriever struct {
	socketPath string
	audience   string
}

// GetIdentityToken fetches an OIDC token from Fly.io's Unix socket API
func (f *flyTokenRetriever) GetIdentityToken() ([]byte, error) {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", f.socketPath)
			},
		},
		Timeout: 5 * time.Second,
	}

	reqBody, err := json.Marshal(map[string]string{"aud": f.audience})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := client.Post("http://localhost/v1/tokens/oidc", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// New creates an uploader backed by a real S3 client
func New(ctx context.Context, opts Options) (*Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.RoleARN == "" && opts.AccessKeyID != "" {
		log.Println("WARNING: Using static AWS credentials (deprecated). Migrate to OIDC for better security.")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if opts.RoleARN != "" {
		log.Printf("Using OIDC authentication with role: %s", opts.RoleARN)
		provider := stscreds.NewWebIdentityRoleProvider(
			sts.NewFromConfig(cfg),
			opts.RoleARN,
			&flyTokenRetriever{socketPath: "/.fly/api", audience: "sts.amazonaws.com"},
		)
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, opts), nil
}

// NewWithClient creates an uploader around an existing client
func NewWithClient(client ObjectPutter, opts Options) *Uploader {
	return &Uploader{
		client:      client,
		bucket:      opts.Bucket,
		deleteAfter: opts.DeleteAfterUpload,
		maxRetries:  opts.MaxRetries,
		retryDelay:  time.Second,
	}
}

// ScanAndUploadExisting uploads transcripts left over from a previous run
func (u *Uploader) ScanAndUploadExisting(ctx context.Context, outputDir string) error {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read directory: %w", err)
	}

	found := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isTranscript(name) {
			continue
		}
		found++
		go u.uploadWithRetry(ctx, filepath.Join(outputDir, name))
	}

	if found > 0 {
		log.Printf("Found %d leftover transcript(s) to upload", found)
	}
	return nil
}

// Start uploads every file path received on files until ctx is cancelled
func (u *Uploader) Start(ctx context.Context, files <-chan string) error {
	for {
		select {
		case path := <-files:
			go u.uploadWithRetry(ctx, path)

		case <-ctx.Done():
			log.Println("Uploader shutting down...")
			return ctx.Err()
		}
	}
}

// uploadWithRetry uploads a file with exponential backoff. It reports
// whether the upload succeeded.
func (u *Uploader) uploadWithRetry(ctx context.Context, path string) bool {
	filename := filepath.Base(path)

	key, err := ObjectKey(filename)
	if err != nil {
		log.Printf("Error generating S3 key for %s: %v", filename, err)
		return false
	}

	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		err = u.upload(ctx, path, key)
		if err == nil {
			log.Printf("Uploaded %s to s3://%s/%s", filename, u.bucket, key)
			if u.deleteAfter {
				if err := os.Remove(path); err != nil {
					log.Printf("Error deleting local file %s: %v", path, err)
				}
			}
			return true
		}

		if attempt < u.maxRetries {
			backoff := u.retryDelay << uint(attempt)
			log.Printf("Upload attempt %d/%d failed for %s: %v. Retrying in %v",
				attempt+1, u.maxRetries+1, filename, err, backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false
			}
		}
	}

	log.Printf("Failed to upload %s after %d attempts: %v", filename, u.maxRetries+1, err)
	return false
}

func (u *Uploader) upload(ctx context.Context, path, key string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func isTranscript(name string) bool {
	return strings.HasPrefix(name, recorder.FilePrefix+"_") && strings.HasSuffix(name, ".jsonl")
}

// ObjectKey maps a transcript file name to its S3 key.
// Input: qa_ludwig_20251230_103000.jsonl (or qa_ludwig_20251230_103000-2.jsonl)
// Output: 2025/12/30/ludwig/qa_ludwig_20251230_103000.jsonl
func ObjectKey(filename string) (string, error) {
	if !isTranscript(filename) {
		return "", fmt.Errorf("not a transcript: %s", filename)
	}

	// Channel names may contain underscores, so parse from the end
	parts := strings.Split(strings.TrimSuffix(filename, ".jsonl"), "_")
	if len(parts) < 4 {
		return "", fmt.Errorf("invalid filename format: %s", filename)
	}
	clock, seq, hasSeq := strings.Cut(parts[len(parts)-1], "-")
	if hasSeq {
		if _, err := strconv.Atoi(seq); err != nil {
			return "", fmt.Errorf("invalid sequence in %s: %w", filename, err)
		}
	}
	stamp := parts[len(parts)-2] + "_" + clock
	channel := strings.Join(parts[1:len(parts)-2], "_")

	t, err := time.Parse(recorder.TimeLayout, stamp)
	if err != nil {
		return "", fmt.Errorf("parse timestamp: %w", err)
	}

	return fmt.Sprintf("%04d/%02d/%02d/%s/%s", t.Year(), t.Month(), t.Day(), channel, filename), nil
}
