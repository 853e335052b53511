package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/osvaldoandrade/quotegen/internal/providers"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of *sqs.Client used by the notifier.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type NotifierService interface {
	Notify(ctx context.Context, rec domain.RunResult) error
}

type sqsNotifier struct {
	client   SQSAPI
	queueURL string
}

func NewSQSNotifier(client SQSAPI, queueURL string) NotifierService {
	return &sqsNotifier{client: client, queueURL: queueURL}
}

func (n *sqsNotifier) Notify(ctx context.Context, rec domain.RunResult) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	attrs := map[string]types.MessageAttributeValue{
		"status": {DataType: aws.String("String"), StringValue: aws.String(string(rec.Status))},
	}
	if rec.ErrorKind != "" {
		attrs["errorKind"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(string(rec.ErrorKind))}
	}
	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(n.queueURL),
		MessageBody:       aws.String(string(data)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to result queue: %s", providers.APIErrorMessage(err))
	}
	return nil
}
