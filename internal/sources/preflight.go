//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sources checks that the object-storage locations the bulk copies
// read from are reachable before any table is touched.
//
// The checks run with the caller's AWS credentials, not the warehouse IAM
// role, so a passing preflight does not prove the role can read the data.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// Client is the subset of the S3 API the preflight uses.
type Client interface {
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewClient creates an S3 client for region using the default credential
// chain. Requests are attempted once. optFns adjust the client, e.g. to
// target an S3-compatible endpoint.
func NewClient(ctx context.Context, region string, optFns ...func(*s3.Options)) (*s3.Client, error) {
	if region == "" {
		region = warehouse.DefaultRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, optFns...), nil
}

// Kind distinguishes copy prefixes from single objects.
type Kind string

const (
	KindPrefix Kind = "prefix"
	KindObject Kind = "object"
)

// Result is the outcome of checking one location.
type Result struct {
	Name     string
	Kind     Kind
	Location warehouse.S3Location
	Err      error
}

// OK reports whether the location was found.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report holds the result of every checked location.
type Report struct {
	Results []Result
}

// Err joins the failures of all locations, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", res.Name, res.Location, res.Err))
		}
	}
	return errors.Join(errs...)
}

// ErrNoObjects is returned for a prefix that matches nothing.
var ErrNoObjects = errors.New("no objects under prefix")

// ErrObjectNotFound is returned for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// Checker runs the preflight against a client.
type Checker struct {
	client Client
}

// NewChecker creates a checker.
func NewChecker(client Client) *Checker {
	return &Checker{client: client}
}

type target struct {
	name string
	kind Kind
	uri  string
}

// Check validates src and then probes each location: the event and song
// prefixes must hold at least one object and the JSONPaths file, when
// configured, must exist. Invalid sources are returned as an error; missing
// data is reported per location.
func (c *Checker) Check(ctx context.Context, src warehouse.Sources) (*Report, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	targets := []target{{"log_data", KindPrefix, src.LogData}}
	if src.LogJSONPaths != "" {
		targets = append(targets, target{"log_data_json", KindObject, src.LogJSONPaths})
	}
	targets = append(targets, target{"song_data", KindPrefix, src.SongData})

	report := &Report{}
	for _, t := range targets {
		loc, err := warehouse.ParseS3URI(t.uri)
		if err != nil {
			return nil, err
		}

		res := Result{Name: t.name, Kind: t.kind, Location: loc}
		switch t.kind {
		case KindPrefix:
			res.Err = c.checkPrefix(ctx, loc)
		case KindObject:
			res.Err = c.checkObject(ctx, loc)
		}

		if res.Err != nil {
			logging.Warn().Str("source", t.name).Str("location", loc.String()).Err(res.Err).Msg("Source check failed")
		} else {
			logging.Debug().Str("source", t.name).Str("location", loc.String()).Msg("Source check passed")
		}
		report.Results = append(report.Results, res)
	}

	return report, nil
}

func (c *Checker) checkPrefix(ctx context.Context, loc warehouse.S3Location) error {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(loc.Bucket),
		Prefix:  aws.String(loc.Key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return err
	}
	if len(out.Contents) == 0 {
		return ErrNoObjects
	}
	return nil
}

func (c *Checker) checkObject(ctx context.Context, loc warehouse.S3Location) error {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ErrObjectNotFound
	}
	return err
}
