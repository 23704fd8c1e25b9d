// Package queue publishes failed automated debit attempts to an SQS
// dead-letter queue for later inspection.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// FailedDebitAttempt is the message body enqueued for every debit the
// processor gave up on.
type FailedDebitAttempt struct {
	TokenAccount   string    `json:"token_account"`
	DebitAuthority string    `json:"debit_authority"`
	Destination    string    `json:"destination"`
	Amount         uint64    `json:"amount"`
	ErrorMessage   string    `json:"error_message"`
	AttemptedAt    time.Time `json:"attempted_at"`
}

// FailedDebitPublisher sends failed attempts to the configured queue.
type FailedDebitPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewFailedDebitPublisher creates a publisher for the given queue URL using
// the default AWS configuration chain.
func NewFailedDebitPublisher(ctx context.Context, queueURL string) (*FailedDebitPublisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &FailedDebitPublisher{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Publish enqueues one failed attempt.
func (p *FailedDebitPublisher) Publish(ctx context.Context, attempt FailedDebitAttempt) error {
	body, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal failed debit attempt: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"TokenAccount": {
				StringValue: aws.String(attempt.TokenAccount),
				DataType:    aws.String("String"),
			},
			"DebitAuthority": {
				StringValue: aws.String(attempt.DebitAuthority),
				DataType:    aws.String("String"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
