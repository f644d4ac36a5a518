package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"finassist/internal/finance"
)

type staticGoals []finance.Record

func (s staticGoals) All(context.Context) ([]finance.Record, error) { return s, nil }

type fakeS3 struct {
	key  string
	body []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

type fakeAthena struct {
	query  string
	states []athenatypes.QueryExecutionState
	polls  int
}

func (f *fakeAthena) StartQueryExecution(_ context.Context, in *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.query = aws.ToString(in.QueryString)
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("q-1")}, nil
}

func (f *fakeAthena) GetQueryExecution(context.Context, *athena.GetQueryExecutionInput, ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	state := f.states[f.polls]
	f.polls++
	return &athena.GetQueryExecutionOutput{QueryExecution: &athenatypes.QueryExecution{
		Status: &athenatypes.QueryExecutionStatus{State: state, StateChangeReason: aws.String("table not found")},
	}}, nil
}

func TestRowFromGoal(t *testing.T) {
	row := RowFromGoal(finance.Record{
		"user_id": "user-001", "goal_id": "goal-001", "name": "Buy a House",
		"current_amount": 10000.0, "target_amount": 50000.0, "target_date": "2025-12-31",
	})
	assert.Equal(t, "2025-12-31", row.DueDate)
	assert.InDelta(t, 20.0, row.ProgressPct, 1e-9)
	assert.False(t, row.Reached)

	assert.True(t, RowFromGoal(finance.Record{"current_amount": 5, "target_amount": 5}).Reached)
	assert.Zero(t, RowFromGoal(finance.Record{"current_amount": 5, "target_amount": 0}).ProgressPct)
}

func TestSnapshotWritesParquet(t *testing.T) {
	goals := staticGoals{
		{"user_id": "user-001", "goal_id": "goal-001", "name": "Buy a House", "current_amount": 10000.0, "target_amount": 50000.0},
		{"user_id": "user-001", "goal_id": "goal-002", "name": "Emergency Fund", "current_amount": 25000.0, "target_amount": 25000.0},
		{"name": "orphan without keys"},
	}
	s3c := &fakeS3{}
	ath := &fakeAthena{states: []athenatypes.QueryExecutionState{
		athenatypes.QueryExecutionStateRunning,
		athenatypes.QueryExecutionStateSucceeded,
	}}
	opt := SnapshotOptions{
		Bucket: "analytics",
		Prefix: "goals_snapshot",
		Athena: AthenaOptions{Database: "finassist", Table: "goals_snapshot", OutputLocation: "s3://analytics/athena/", PollInterval: time.Millisecond},
	}
	h := NewGoalsSnapshot(goals, s3c, ath, opt, nil)
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	out, err := h.Handle(context.Background(), events.CloudWatchEvent{})
	require.NoError(t, err)
	assert.Equal(t, 2, out["written"])
	assert.Equal(t, 1, out["reached"])
	assert.Equal(t, "q-1", out["repair_query_id"])
	assert.True(t, strings.HasPrefix(s3c.key, "goals_snapshot/dt=2024-06-01/part-"), s3c.key)
	assert.Equal(t, "MSCK REPAIR TABLE goals_snapshot", ath.query)

	path := filepath.Join(t.TempDir(), "snap.parquet")
	require.NoError(t, os.WriteFile(path, s3c.body, 0o600))
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(GoalRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.EqualValues(t, 2, pr.GetNumRows())

	rows := make([]GoalRow, 2)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "goal-001", rows[0].GoalID)
	assert.True(t, rows[1].Reached)
}

func TestSnapshotNoGoals(t *testing.T) {
	s3c := &fakeS3{}
	out, err := NewGoalsSnapshot(staticGoals{}, s3c, nil, SnapshotOptions{Bucket: "b"}, nil).Handle(context.Background(), events.CloudWatchEvent{})
	require.NoError(t, err)
	assert.Equal(t, 0, out["written"])
	assert.Empty(t, s3c.key)
}

func TestRepairPartitionsFailure(t *testing.T) {
	ath := &fakeAthena{states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateFailed}}
	qid, err := RepairPartitions(context.Background(), ath, AthenaOptions{Database: "d", Table: "t", OutputLocation: "s3://b/"})
	var ae *AthenaError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "q-1", qid)
	assert.Equal(t, "FAILED", ae.State)
	assert.Equal(t, "athena FAILED: table not found (qid=q-1)", ae.Error())

	_, err = RepairPartitions(context.Background(), ath, AthenaOptions{Database: "d", Table: "t", OutputLocation: "bucket/"})
	assert.ErrorContains(t, err, "s3://")
}

func TestSnapshotOptionsFromEnv(t *testing.T) {
	t.Setenv("ANALYTICS_BUCKET", "")
	_, err := SnapshotOptionsFromEnv()
	assert.Error(t, err)

	t.Setenv("ANALYTICS_BUCKET", "analytics")
	t.Setenv("GOALS_SNAPSHOT_PREFIX", "")
	t.Setenv("ETL_TIMEZONE", "Asia/Ho_Chi_Minh")
	opt, err := SnapshotOptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "goals_snapshot/", opt.Prefix)
	assert.Equal(t, "Asia/Ho_Chi_Minh", opt.Location.String())
}
