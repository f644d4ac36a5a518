package alerts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/formatter"
	"finassist/internal/logging"
)

const maxSubjectRunes = 100

var ErrNoTopic = errors.New("missing env GOAL_ALERTS_TOPIC_ARN")

type SNSClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
}

func TopicArnFromEnv() string {
	return strings.TrimSpace(os.Getenv("GOAL_ALERTS_TOPIC_ARN"))
}

// Notifier publishes goal milestones to one SNS topic.
type Notifier struct {
	sns      SNSClient
	topicArn string
	log      *zap.Logger
}

func NewNotifier(c SNSClient, topicArn string, log *zap.Logger) *Notifier {
	return &Notifier{sns: c, topicArn: strings.TrimSpace(topicArn), log: logging.OrNop(log)}
}

// Reached reports whether the goal's current amount has met a positive target.
func Reached(goal finance.Record) bool {
	current, ok1 := finance.Number(goal["current_amount"])
	target, ok2 := finance.Number(goal["target_amount"])
	return ok1 && ok2 && target > 0 && current >= target
}

// GoalReached publishes a message for goal if it has reached its target.
// It returns false when nothing was sent.
func (n *Notifier) GoalReached(ctx context.Context, userID string, goal finance.Record) (bool, error) {
	if !Reached(goal) {
		return false, nil
	}
	if n.topicArn == "" {
		return false, ErrNoTopic
	}

	subject, message := buildMessage(userID, goal)
	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"user_id": {DataType: aws.String("String"), StringValue: aws.String(userID)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("sns publish: %w", err)
	}
	n.log.Info("goal alert sent",
		zap.String("user_id", userID),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return true, nil
}

// Subscribe adds an email endpoint to the topic. SNS asks the owner to confirm it once.
func (n *Notifier) Subscribe(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("empty email")
	}
	if n.topicArn == "" {
		return "", ErrNoTopic
	}
	out, err := n.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(n.topicArn),
		Protocol: aws.String("email"),
		Endpoint: aws.String(email),
	})
	if err != nil {
		return "", fmt.Errorf("sns subscribe: %w", err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

func buildMessage(userID string, goal finance.Record) (string, string) {
	name, _ := formatter.Value(goal, "name")
	if name == "" {
		name = "your goal"
	}
	target, _ := formatter.Value(goal, "target_amount")
	current, _ := formatter.Value(goal, "current_amount")

	subject := fmt.Sprintf("Goal reached: %s", name)
	// SNS caps subjects at 100 characters and rejects invalid UTF-8.
	if r := []rune(subject); len(r) > maxSubjectRunes {
		subject = string(r[:maxSubjectRunes-3]) + "..."
	}
	message := fmt.Sprintf("Congratulations! %s has saved $%s of the $%s target for %q.", userID, current, target, name)
	return subject, message
}
