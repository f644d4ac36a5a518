package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
)

type AthenaClient interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

type AthenaOptions struct {
	Database       string
	Table          string
	Workgroup      string
	OutputLocation string // s3://bucket/prefix/
	MaxWait        time.Duration
	PollInterval   time.Duration
}

type AthenaError struct {
	State            string
	Reason           string
	QueryExecutionID string
}

func (e *AthenaError) Error() string {
	if e.QueryExecutionID != "" {
		return fmt.Sprintf("athena %s: %s (qid=%s)", e.State, e.Reason, e.QueryExecutionID)
	}
	return fmt.Sprintf("athena %s: %s", e.State, e.Reason)
}

// RepairPartitions runs MSCK REPAIR TABLE so new dt= prefixes become queryable,
// and waits for it to finish.
func RepairPartitions(ctx context.Context, c AthenaClient, opt AthenaOptions) (string, error) {
	if strings.TrimSpace(opt.Database) == "" || strings.TrimSpace(opt.Table) == "" {
		return "", fmt.Errorf("missing athena database or table")
	}
	if !strings.HasPrefix(opt.OutputLocation, "s3://") {
		return "", fmt.Errorf("athena output location must start with s3://")
	}
	if opt.Workgroup == "" {
		opt.Workgroup = "primary"
	}
	if opt.MaxWait == 0 {
		opt.MaxWait = 60 * time.Second
	}
	if opt.PollInterval == 0 {
		opt.PollInterval = 2 * time.Second
	}

	startOut, err := c.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(fmt.Sprintf("MSCK REPAIR TABLE %s", opt.Table)),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(opt.Database),
		},
		WorkGroup: aws.String(opt.Workgroup),
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(opt.OutputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("athena StartQueryExecution: %w", err)
	}
	qid := aws.ToString(startOut.QueryExecutionId)

	deadline := time.Now().Add(opt.MaxWait)
	for {
		if time.Now().After(deadline) {
			return qid, &AthenaError{State: "TIMEOUT", Reason: "repair timed out", QueryExecutionID: qid}
		}
		st, err := c.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(qid),
		})
		if err != nil {
			return qid, fmt.Errorf("athena GetQueryExecution: %w", err)
		}

		switch st.QueryExecution.Status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			return qid, nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			return qid, &AthenaError{
				State:            string(st.QueryExecution.Status.State),
				Reason:           aws.ToString(st.QueryExecution.Status.StateChangeReason),
				QueryExecutionID: qid,
			}
		}

		select {
		case <-ctx.Done():
			return qid, ctx.Err()
		case <-time.After(opt.PollInterval):
		}
	}
}
