package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// AuditSealTask is scheduled each time a sealed PDF is stored.
	AuditSealTask = "seal:audit"
)

// AuditPayload is serialized into the task payload so the worker knows which
// stored object to re-verify.
type AuditPayload struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
}

// NewAuditTask builds the asynq task for payload.
func NewAuditTask(payload AuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(AuditSealTask, data), nil
}

// DecodeAudit reads the payload of an audit task.
func DecodeAudit(task *asynq.Task) (AuditPayload, error) {
	var payload AuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.DocumentID == "" || payload.ObjectKey == "" {
		return payload, fmt.Errorf("decode payload: missing document id or object key")
	}
	return payload, nil
}

// EnqueueAudit enqueues a seal audit job.
func EnqueueAudit(ctx context.Context, client *asynq.Client, payload AuditPayload) error {
	task, err := NewAuditTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue audit task: %w", err)
	}
	return nil
}

// Auditor accepts audit jobs. The API depends on this rather than on asynq so
// it can run with the in-process pool when Redis is not configured.
type Auditor interface {
	Enqueue(ctx context.Context, payload AuditPayload) error
}

// Client sends audit jobs through Redis.
type Client struct {
	client *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// Enqueue implements Auditor.
func (c *Client) Enqueue(ctx context.Context, payload AuditPayload) error {
	return EnqueueAudit(ctx, c.client, payload)
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
