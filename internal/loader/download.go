package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultEndpoint = "files.polygon.io"
	defaultBucket   = "flatfiles"
)

// Timeframe selects which aggregate series a flat file covers.
type Timeframe string

const (
	Day    Timeframe = "day"
	Minute Timeframe = "minute"
)

// Downloader fetches Polygon flat files over the S3-compatible API and
// keeps them in a local cache directory. Credentials come from the
// POLYGON_ACCESS_KEY and POLYGON_SECRET_KEY environment variables.
type Downloader struct {
	log      *slog.Logger
	client   *minio.Client
	bucket   string
	cacheDir string
}

func NewDownloader(log *slog.Logger, accessKey, secretKey, endpoint, bucket, cacheDir string) (*Downloader, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("polygon credentials not set; export POLYGON_ACCESS_KEY and POLYGON_SECRET_KEY")
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if bucket == "" {
		bucket = defaultBucket
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create flat file client: %w", err)
	}

	return &Downloader{
		log:      log,
		client:   client,
		bucket:   bucket,
		cacheDir: cacheDir,
	}, nil
}

func NewDownloaderFromEnv(log *slog.Logger, cacheDir string) (*Downloader, error) {
	return NewDownloader(log,
		os.Getenv("POLYGON_ACCESS_KEY"),
		os.Getenv("POLYGON_SECRET_KEY"),
		os.Getenv("POLYGON_ENDPOINT"),
		os.Getenv("POLYGON_BUCKET"),
		cacheDir)
}

func aggregatesKey(tf Timeframe, day time.Time) string {
	return fmt.Sprintf("us_stocks_sip/%s_aggs_v1/%04d/%02d/%s.csv.gz",
		tf, day.Year(), day.Month(), day.Format("2006-01-02"))
}

// Aggregates downloads the stock aggregates file for one date and
// returns its local path. A file already in the cache is returned
// without a network round trip; day and minute files cache under
// separate subdirectories because they share base names.
func (d *Downloader) Aggregates(ctx context.Context, tf Timeframe, day time.Time) (string, error) {
	key := aggregatesKey(tf, day)

	dst := filepath.Join(d.cacheDir, string(tf), filepath.Base(key))
	if _, err := os.Stat(dst); err == nil {
		d.log.Debug("flat file cache hit", slog.String("path", dst))
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	d.log.Info("downloading flat file", slog.String("key", key))
	if err := d.client.FGetObject(ctx, d.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", key, err)
	}

	return dst, nil
}

func (d *Downloader) DayAggregates(ctx context.Context, day time.Time) (string, error) {
	return d.Aggregates(ctx, Day, day)
}

func (d *Downloader) MinuteAggregates(ctx context.Context, day time.Time) (string, error) {
	return d.Aggregates(ctx, Minute, day)
}

// AvailableDates lists the dates with a published flat file between
// start and end inclusive, sorted ascending. Weekends and market
// holidays have no file, so callers iterate this instead of the
// calendar.
func (d *Downloader) AvailableDates(ctx context.Context, tf Timeframe, start, end time.Time) ([]time.Time, error) {
	var dates []time.Time
	for year := start.Year(); year <= end.Year(); year++ {
		prefix := fmt.Sprintf("us_stocks_sip/%s_aggs_v1/%04d/", tf, year)
		for obj := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				return nil, fmt.Errorf("failed to list flat files: %w", obj.Err)
			}

			day, err := time.Parse("2006-01-02", strings.TrimSuffix(filepath.Base(obj.Key), ".csv.gz"))
			if err != nil {
				continue
			}
			if day.Before(start) || day.After(end) {
				continue
			}

			dates = append(dates, day)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
