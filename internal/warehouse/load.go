//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

var (
	// ErrCopyUnsupported is returned when bulk copies are requested for a
	// dialect without COPY ... FROM S3.
	ErrCopyUnsupported = errors.New("bulk copy from S3 is only supported by the redshift dialect")

	// ErrInvalidSource is returned when a copy source fails validation.
	ErrInvalidSource = errors.New("invalid copy source")
)

// DefaultRegion is the region the song and log buckets live in.
const DefaultRegion = "us-west-2"

// Sources identifies the object-storage inputs of the bulk copies.
type Sources struct {
	// LogData is the S3 prefix holding the event log JSON files.
	LogData string

	// LogJSONPaths is the S3 URI of the JSONPaths file mapping event
	// fields to events_stg columns. Empty means 'auto'.
	LogJSONPaths string

	// SongData is the S3 prefix holding the song catalog JSON files.
	SongData string

	// RoleARN is the IAM role Redshift assumes to read the bucket.
	RoleARN string

	// Region is the bucket region.
	Region string
}

// S3Location is a parsed s3://bucket/key URI.
type S3Location struct {
	Bucket string
	Key    string
}

// String returns the location in s3:// form.
func (l S3Location) String() string {
	if l.Key == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Key
}

var (
	bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)
	regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

	// IAM role names and paths allow alphanumerics and +=,.@_- only.
	roleResourcePattern = regexp.MustCompile(`^role/[A-Za-z0-9+=,.@_/\-]+$`)
)

// ParseS3URI parses and validates an s3:// URI.
func ParseS3URI(uri string) (S3Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return S3Location{}, fmt.Errorf("%w: %q is not an s3:// URI", ErrInvalidSource, uri)
	}
	if err := checkLiteralSafe(uri); err != nil {
		return S3Location{}, err
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if !bucketPattern.MatchString(bucket) {
		return S3Location{}, fmt.Errorf("%w: invalid bucket name %q", ErrInvalidSource, bucket)
	}
	return S3Location{Bucket: bucket, Key: key}, nil
}

// ValidateRoleARN checks that s is an IAM role ARN.
func ValidateRoleARN(s string) error {
	parsed, err := arn.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: role %q: %v", ErrInvalidSource, s, err)
	}
	if parsed.Service != "iam" || !roleResourcePattern.MatchString(parsed.Resource) {
		return fmt.Errorf("%w: %q is not an IAM role ARN", ErrInvalidSource, s)
	}
	return nil
}

// Validate checks every source value and reports all problems at once.
func (s Sources) Validate() error {
	var errs []error

	if s.LogData == "" {
		errs = append(errs, fmt.Errorf("%w: log data location is required", ErrInvalidSource))
	} else if _, err := ParseS3URI(s.LogData); err != nil {
		errs = append(errs, err)
	}
	if s.SongData == "" {
		errs = append(errs, fmt.Errorf("%w: song data location is required", ErrInvalidSource))
	} else if _, err := ParseS3URI(s.SongData); err != nil {
		errs = append(errs, err)
	}
	if s.LogJSONPaths != "" {
		if _, err := ParseS3URI(s.LogJSONPaths); err != nil {
			errs = append(errs, err)
		}
	}
	if s.RoleARN == "" {
		errs = append(errs, fmt.Errorf("%w: IAM role ARN is required", ErrInvalidSource))
	} else if err := ValidateRoleARN(s.RoleARN); err != nil {
		errs = append(errs, err)
	}
	if s.Region != "" && !regionPattern.MatchString(s.Region) {
		errs = append(errs, fmt.Errorf("%w: invalid region %q", ErrInvalidSource, s.Region))
	}

	return errors.Join(errs...)
}

// checkLiteralSafe rejects characters that cannot be carried safely inside
// a single-quoted Redshift literal.
func checkLiteralSafe(s string) error {
	for _, r := range s {
		if r == '\\' || r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control or escape character", ErrInvalidSource, s)
		}
	}
	return nil
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

const copyTemplateText = `COPY {{.Table}} FROM {{literal .From}}
CREDENTIALS {{literal .Credentials}}
JSON {{literal .JSON}}
REGION {{literal .Region}};`

var copyTemplate = template.Must(template.New("copy").
	Funcs(template.FuncMap{"literal": quoteLiteral}).
	Parse(copyTemplateText))

type copyParams struct {
	Table       string
	From        string
	Credentials string
	JSON        string
	Region      string
}

// CopyStatements renders the staging bulk copies: event logs first, then
// the song catalog. Both must run before any insert.
func CopyStatements(dialect Dialect, src Sources) ([]Statement, error) {
	if dialect != DialectRedshift && dialect != "" {
		return nil, ErrCopyUnsupported
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	region := src.Region
	if region == "" {
		region = DefaultRegion
	}
	credentials := "aws_iam_role=" + src.RoleARN

	logJSON := "auto"
	if src.LogJSONPaths != "" {
		logJSON = src.LogJSONPaths
	}

	params := []copyParams{
		{Table: EventsStaging, From: src.LogData, Credentials: credentials, JSON: logJSON, Region: region},
		{Table: SongsStaging, From: src.SongData, Credentials: credentials, JSON: "auto", Region: region},
	}

	stmts := make([]Statement, 0, len(params))
	for _, p := range params {
		var b strings.Builder
		if err := copyTemplate.Execute(&b, p); err != nil {
			return nil, fmt.Errorf("failed to render copy for %s: %w", p.Table, err)
		}
		stmts = append(stmts, Statement{Name: "copy_" + p.Table, SQL: b.String()})
	}
	return stmts, nil
}

// InsertOptions adjusts the transformation statements.
type InsertOptions struct {
	// CorrectArtistDedup makes the artists_dim insert skip rows whose
	// artist_id is already present. When false the historical exclusion,
	// which compares artist_name against artists_dim.artist_id, is kept.
	CorrectArtistDedup bool
}

// The most recent NextSong event of each user wins. Events sharing that
// timestamp are ranked by level, then name and gender, so each user yields
// exactly one row. Users already present are left untouched.
const usersInsertSQL = `
INSERT INTO users_dim (user_id, first_name, last_name, gender, level)
SELECT
    userId,
    firstName,
    lastName,
    gender,
    level
FROM (
    SELECT
        es.userId,
        es.firstName,
        es.lastName,
        es.gender,
        es.level,
        ROW_NUMBER() OVER (
            PARTITION BY es.userId
            ORDER BY es.ts DESC, es.level DESC, es.firstName, es.lastName, es.gender
        ) AS rn
    FROM events_stg es
    WHERE es.page = 'NextSong'
      AND es.userId IS NOT NULL
) latest
WHERE rn = 1
  AND userId NOT IN (SELECT DISTINCT user_id FROM users_dim);`

const songsInsertSQL = `
INSERT INTO songs_dim (song_id, title, artist_id, year, duration)
SELECT DISTINCT
    song_id,
    title,
    artist_id,
    year,
    duration
FROM songs_stg
WHERE song_id NOT IN (SELECT DISTINCT song_id FROM songs_dim)
  AND song_id IS NOT NULL
  AND artist_id IS NOT NULL
  AND title IS NOT NULL;`

// %s is the staging column compared against artists_dim.artist_id.
const artistsInsertSQL = `
INSERT INTO artists_dim (artist_id, artist_name, location, latitude, longitude)
SELECT DISTINCT
    artist_id,
    artist_name,
    artist_location,
    artist_latitude,
    artist_longitude
FROM songs_stg
WHERE %s NOT IN (SELECT DISTINCT artist_id FROM artists_dim)
  AND artist_id IS NOT NULL
  AND artist_name IS NOT NULL;`

const timeInsertSQL = `
INSERT INTO time_dim (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT
    start_time,
    EXTRACT(hour FROM start_time),
    EXTRACT(day FROM start_time),
    EXTRACT(week FROM start_time),
    EXTRACT(month FROM start_time),
    EXTRACT(year FROM start_time),
    EXTRACT(dow FROM start_time)
FROM (
    SELECT TIMESTAMP 'epoch' + (ts / 1000) * INTERVAL '1 second' AS start_time
    FROM events_stg
    WHERE ts IS NOT NULL
) AS ev
WHERE start_time NOT IN (SELECT DISTINCT start_time FROM time_dim);`

// No guard against facts loaded by an earlier run: every resolvable
// NextSong event in staging is appended.
const songplaysInsertSQL = `
INSERT INTO songplays_fact (
    start_time, user_id, level, song_id, artist_id, session_id, location, user_agent
)
SELECT
    TIMESTAMP 'epoch' + (es.ts / 1000) * INTERVAL '1 second' AS start_time,
    es.userId,
    es.level,
    ss.song_id,
    ss.artist_id,
    es.sessionId,
    es.location,
    es.userAgent
FROM events_stg es
LEFT JOIN songs_stg ss
    ON es.song = ss.title
   AND es.artist = ss.artist_name
   AND es.length = ss.duration
WHERE es.page = 'NextSong'
  AND ss.song_id IS NOT NULL
  AND ss.artist_id IS NOT NULL;`

// InsertStatements returns the transformations in dependency order:
// every dimension before the fact table that references it.
func InsertStatements(opts InsertOptions) []Statement {
	artistExclusion := "artist_name"
	if opts.CorrectArtistDedup {
		artistExclusion = "artist_id"
	}

	return []Statement{
		{Name: "insert_" + UsersDim, SQL: usersInsertSQL},
		{Name: "insert_" + SongsDim, SQL: songsInsertSQL},
		{Name: "insert_" + ArtistsDim, SQL: fmt.Sprintf(artistsInsertSQL, artistExclusion)},
		{Name: "insert_" + TimeDim, SQL: timeInsertSQL},
		{Name: "insert_" + SongplaysFact, SQL: songplaysInsertSQL},
	}
}
