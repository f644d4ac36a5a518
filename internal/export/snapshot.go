package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/formatter"
	"finassist/internal/logging"
)

// GoalRow matches the goals_snapshot Glue table columns.
type GoalRow struct {
	UserID        string  `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	GoalID        string  `parquet:"name=goal_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name          string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category      string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DueDate       string  `parquet:"name=due_date, type=BYTE_ARRAY, convertedtype=UTF8"` // YYYY-MM-DD
	TargetAmount  float64 `parquet:"name=target_amount, type=DOUBLE"`
	CurrentAmount float64 `parquet:"name=current_amount, type=DOUBLE"`
	ProgressPct   float64 `parquet:"name=progress_pct, type=DOUBLE"`
	Reached       bool    `parquet:"name=reached, type=BOOLEAN"`
}

// RowFromGoal flattens a stored goal. Missing numbers become 0.
func RowFromGoal(g finance.Record) GoalRow {
	str := func(k string) string {
		s, _ := formatter.Value(g, k)
		return s
	}
	target, _ := finance.Number(g["target_amount"])
	current, _ := finance.Number(g["current_amount"])

	row := GoalRow{
		UserID:        str("user_id"),
		GoalID:        str("goal_id"),
		Name:          str("name"),
		Category:      str("category"),
		DueDate:       str("due_date"),
		TargetAmount:  target,
		CurrentAmount: current,
	}
	if row.DueDate == "" {
		row.DueDate = str("target_date")
	}
	if target > 0 {
		row.ProgressPct = current / target * 100
		row.Reached = current >= target
	}
	return row
}

type GoalSource interface {
	All(ctx context.Context) ([]finance.Record, error)
}

type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type SnapshotOptions struct {
	Bucket   string
	Prefix   string
	Location *time.Location
	// Athena is optional; without a table the repair step is skipped.
	Athena AthenaOptions
}

// SnapshotOptionsFromEnv reads:
//   - ANALYTICS_BUCKET (required)
//   - GOALS_SNAPSHOT_PREFIX (default "goals_snapshot/")
//   - ETL_TIMEZONE (default "UTC")
//   - ATHENA_DATABASE, ATHENA_TABLE, ATHENA_WORKGROUP, ATHENA_OUTPUT
func SnapshotOptionsFromEnv() (SnapshotOptions, error) {
	opt := SnapshotOptions{
		Bucket: strings.TrimSpace(os.Getenv("ANALYTICS_BUCKET")),
		Prefix: strings.TrimSpace(os.Getenv("GOALS_SNAPSHOT_PREFIX")),
		Athena: AthenaOptions{
			Database:       strings.TrimSpace(os.Getenv("ATHENA_DATABASE")),
			Table:          strings.TrimSpace(os.Getenv("ATHENA_TABLE")),
			Workgroup:      strings.TrimSpace(os.Getenv("ATHENA_WORKGROUP")),
			OutputLocation: strings.TrimSpace(os.Getenv("ATHENA_OUTPUT")),
		},
	}
	if opt.Bucket == "" {
		return opt, fmt.Errorf("missing env ANALYTICS_BUCKET")
	}
	if opt.Prefix == "" {
		opt.Prefix = "goals_snapshot/"
	}

	tzName := strings.TrimSpace(os.Getenv("ETL_TIMEZONE"))
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return opt, fmt.Errorf("load timezone %s: %w", tzName, err)
	}
	opt.Location = loc
	return opt, nil
}

// GoalsSnapshot writes every goal to one Parquet object per day and refreshes Athena partitions.
type GoalsSnapshot struct {
	goals  GoalSource
	s3     S3Putter
	athena AthenaClient
	opt    SnapshotOptions
	log    *zap.Logger
	now    func() time.Time
}

func NewGoalsSnapshot(goals GoalSource, s3c S3Putter, ath AthenaClient, opt SnapshotOptions, log *zap.Logger) *GoalsSnapshot {
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	return &GoalsSnapshot{goals: goals, s3: s3c, athena: ath, opt: opt, log: logging.OrNop(log), now: time.Now}
}

// Handle is triggered by an EventBridge schedule.
func (h *GoalsSnapshot) Handle(ctx context.Context, _ events.CloudWatchEvent) (map[string]any, error) {
	goals, err := h.goals.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan goals: %w", err)
	}
	if len(goals) == 0 {
		return map[string]any{"ok": true, "written": 0, "reason": "no goals found"}, nil
	}

	rows := make([]GoalRow, 0, len(goals))
	reached := 0
	for _, g := range goals {
		row := RowFromGoal(g)
		if row.UserID == "" || row.GoalID == "" {
			continue
		}
		if row.Reached {
			reached++
		}
		rows = append(rows, row)
	}

	dt := h.now().In(h.opt.Location).Format("2006-01-02")
	key := fmt.Sprintf("%sdt=%s/part-%s.parquet", ensureTrailingSlash(h.opt.Prefix), dt, randHex(8))

	data, err := encodeParquet(rows)
	if err != nil {
		return nil, err
	}
	if _, err := h.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.opt.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		ACL:         s3types.ObjectCannedACLPrivate,
	}); err != nil {
		return nil, fmt.Errorf("s3 putobject failed: %w", err)
	}
	h.log.Info("goals snapshot written", zap.String("key", key), zap.Int("rows", len(rows)))

	out := map[string]any{
		"ok":      true,
		"written": len(rows),
		"reached": reached,
		"bucket":  h.opt.Bucket,
		"key":     key,
	}

	if h.athena != nil && h.opt.Athena.Table != "" {
		qid, err := RepairPartitions(ctx, h.athena, h.opt.Athena)
		if err != nil {
			return out, fmt.Errorf("repair partitions: %w", err)
		}
		out["repair_query_id"] = qid
	}
	return out, nil
}

// encodeParquet writes rows through a temp file, since the local writer needs a seekable file.
func encodeParquet(rows []GoalRow) ([]byte, error) {
	localPath := filepath.Join(os.TempDir(), "goals_snapshot_"+randHex(8)+".parquet")
	defer func() { _ = os.Remove(localPath) }()

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return nil, fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(GoalRow), 1)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = 0 // uncompressed

	for i, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return nil, fmt.Errorf("parquet write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read parquet tmp: %w", err)
	}
	return data, nil
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
