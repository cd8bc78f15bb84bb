// Package glacier talks to an Amazon S3 Glacier vault.
package glacier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/aws/aws-sdk-go-v2/service/glacier/types"

	"github.com/flo-mic/glacierbak/internal/jobs"
)

// accountID "-" selects the account that owns the credentials.
const accountID = "-"

// Per-call deadlines. The process is re-run by the scheduler, so a slow call
// is abandoned rather than retried.
const (
	callTimeout   = 2 * time.Minute
	uploadTimeout = 6 * time.Hour
)

// Options configures New.
type Options struct {
	Vault           string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Client wraps the Glacier API for one vault.
type Client struct {
	api   *glacier.Client
	vault string
	log   *slog.Logger
}

// New builds a client from the default AWS credential chain, optionally
// overridden by static credentials and an explicit region.
func New(ctx context.Context, opts Options, log *slog.Logger) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewFromConfig(cfg, opts.Vault, log), nil
}

// NewFromConfig builds a client from an existing AWS config.
func NewFromConfig(cfg aws.Config, vault string, log *slog.Logger, optFns ...func(*glacier.Options)) *Client {
	return &Client{api: glacier.NewFromConfig(cfg, optFns...), vault: vault, log: log}
}

// Vault returns the vault name the client is bound to.
func (c *Client) Vault() string { return c.vault }

// RequestInventory starts an inventory-retrieval job and returns its id.
func (c *Client) RequestInventory(ctx context.Context, vault string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := c.api.InitiateJob(ctx, &glacier.InitiateJobInput{
		AccountId: aws.String(accountID),
		VaultName: aws.String(vault),
		JobParameters: &types.JobParameters{
			Type:   aws.String("inventory-retrieval"),
			Format: aws.String("JSON"),
		},
	})
	if err != nil {
		return "", wrap("InitiateJob", err)
	}
	return aws.ToString(out.JobId), nil
}

// JobStatus maps the provider job state onto jobs.Status.
func (c *Client) JobStatus(ctx context.Context, vault, jobID string) (jobs.Status, string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := c.api.DescribeJob(ctx, &glacier.DescribeJobInput{
		AccountId: aws.String(accountID),
		VaultName: aws.String(vault),
		JobId:     aws.String(jobID),
	})
	if err != nil {
		return jobs.StatusPending, "", wrap("DescribeJob", err)
	}

	msg := aws.ToString(out.StatusMessage)
	switch out.StatusCode {
	case types.StatusCodeSucceeded:
		return jobs.StatusSucceeded, msg, nil
	case types.StatusCodeFailed:
		return jobs.StatusFailed, msg, nil
	default:
		return jobs.StatusPending, msg, nil
	}
}

// JobOutput downloads the output of a finished job.
func (c *Client) JobOutput(ctx context.Context, vault, jobID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := c.api.GetJobOutput(ctx, &glacier.GetJobOutputInput{
		AccountId: aws.String(accountID),
		VaultName: aws.String(vault),
		JobId:     aws.String(jobID),
	})
	if err != nil {
		return nil, wrap("GetJobOutput", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading job output: %w", err)
	}
	return data, nil
}

// DeleteArchive removes an archive from the bound vault.
func (c *Client) DeleteArchive(ctx context.Context, archiveID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := c.api.DeleteArchive(ctx, &glacier.DeleteArchiveInput{
		AccountId: aws.String(accountID),
		VaultName: aws.String(c.vault),
		ArchiveId: aws.String(archiveID),
	})
	if err != nil {
		return wrap("DeleteArchive", err)
	}
	return nil
}

// UploadArchive uploads the file at path in a single request and returns the archive id.
// The SDK computes the SHA-256 tree hash from the seekable file.
func (c *Client) UploadArchive(ctx context.Context, path, description string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	out, err := c.api.UploadArchive(ctx, &glacier.UploadArchiveInput{
		AccountId:          aws.String(accountID),
		VaultName:          aws.String(c.vault),
		ArchiveDescription: aws.String(description),
		Body:               f,
	})
	if err != nil {
		return "", wrap("UploadArchive", err)
	}
	c.log.Debug("upload accepted", "archive", aws.ToString(out.ArchiveId), "location", aws.ToString(out.Location))
	return aws.ToString(out.ArchiveId), nil
}
