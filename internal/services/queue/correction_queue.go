package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CorrectionQueue holds per-campaign correction guidance produced when a
// turn fails dice validation. Corrections are drained into the next
// prompt so a freshly restarted process still knows a reprompt is owed.
type CorrectionQueue struct {
	client *Client
}

func NewCorrectionQueue(client *Client) *CorrectionQueue {
	return &CorrectionQueue{
		client: client,
	}
}

func queueKey(campaignID uuid.UUID) string {
	return fmt.Sprintf("corrections:%s", campaignID.String())
}

// Enqueue adds a correction to the end of the queue for a campaign
func (cq *CorrectionQueue) Enqueue(ctx context.Context, campaignID uuid.UUID, correction string) error {
	key := queueKey(campaignID)
	err := cq.client.rdb.RPush(ctx, key, correction).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue correction: %w", err)
	}
	return nil
}

// Dequeue removes and returns all queued corrections for a campaign
func (cq *CorrectionQueue) Dequeue(ctx context.Context, campaignID uuid.UUID) ([]string, error) {
	key := queueKey(campaignID)

	corrections, err := cq.client.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to dequeue corrections: %w", err)
	}
	if len(corrections) > 0 {
		if err := cq.client.rdb.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear correction queue after dequeue: %w", err)
		}
	}
	return corrections, nil
}

// Peek returns queued corrections without removing them
func (cq *CorrectionQueue) Peek(ctx context.Context, campaignID uuid.UUID, limit int) ([]string, error) {
	key := queueKey(campaignID)

	end := int64(limit - 1)
	if limit <= 0 {
		end = -1 // Get all
	}
	corrections, err := cq.client.rdb.LRange(ctx, key, 0, end).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to peek corrections: %w", err)
	}
	return corrections, nil
}

// Clear removes all corrections for a campaign
func (cq *CorrectionQueue) Clear(ctx context.Context, campaignID uuid.UUID) error {
	key := queueKey(campaignID)
	err := cq.client.rdb.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to clear correction queue: %w", err)
	}
	return nil
}

// Depth returns the number of corrections queued for a campaign
func (cq *CorrectionQueue) Depth(ctx context.Context, campaignID uuid.UUID) (int, error) {
	key := queueKey(campaignID)
	count, err := cq.client.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get correction queue depth: %w", err)
	}
	return int(count), nil
}
