package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"concert-tickets/internal/model"
	"concert-tickets/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "tickets:receipts"
	ConsumerGroupName  = "receipt-workers"
	ConsumerNamePrefix = "issuer"
	receiptField       = "receipt"
)

// RedisStreamReceiptQueueConfig 可注入的逾時、重試與長度設定；零值時使用預設。
type RedisStreamReceiptQueueConfig struct {
	StreamKey          string
	MaxLen             int64         // 以 MAXLEN ~ 修剪 stream，0 表示不修剪
	ClaimMinIdleTime   time.Duration // PEL 中閒置超過此時間才會被 XAUTOCLAIM 領回
	MaxRetryCount      int           // 超過此投遞次數視為毒藥消息
	ReadGroupBlockTime time.Duration
	BatchSize          int64
}

func (c RedisStreamReceiptQueueConfig) withDefaults() RedisStreamReceiptQueueConfig {
	if c.StreamKey == "" {
		c.StreamKey = StreamKey
	}
	if c.MaxLen < 0 {
		c.MaxLen = 0
	}
	if c.ClaimMinIdleTime <= 0 {
		c.ClaimMinIdleTime = 5 * time.Second
	}
	if c.MaxRetryCount <= 0 {
		c.MaxRetryCount = 5
	}
	if c.ReadGroupBlockTime <= 0 {
		c.ReadGroupBlockTime = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	return c
}

type RedisStreamReceiptQueueImpl struct {
	client   redis.Cmdable
	group    string
	consumer string
	cfg      RedisStreamReceiptQueueConfig
	log      *zap.Logger
}

// NewRedisStreamReceiptQueue 建立 Redis Stream 版 ReceiptQueue，並確保 consumer group 存在。
func NewRedisStreamReceiptQueue(ctx context.Context, client redis.Cmdable, consumerID string, cfg RedisStreamReceiptQueueConfig) (ReceiptQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	q := &RedisStreamReceiptQueueImpl{
		client:   client,
		group:    ConsumerGroupName,
		consumer: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:      cfg.withDefaults(),
		log:      logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamReceiptQueueImpl) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.StreamKey, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamReceiptQueueImpl) PublishReceipt(ctx context.Context, receipt *model.PurchaseReceipt) error {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: q.cfg.StreamKey,
		ID:     "*",
		Values: map[string]interface{}{receiptField: string(payload)},
	}
	if q.cfg.MaxLen > 0 {
		args.MaxLen = q.cfg.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

// SubscribeReceipts 同時跑讀取新消息與 XAUTOCLAIM 兩個迴圈；兩者都結束後才關閉 channel
func (q *RedisStreamReceiptQueueImpl) SubscribeReceipts(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		q.readLoop(ctx, out)
	}()
	go func() {
		defer wg.Done()
		q.claimLoop(ctx, out)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// readLoop 只讀 ">"；已投遞但未 ACK 的消息交給 claimLoop 逾時後重試
func (q *RedisStreamReceiptQueueImpl) readLoop(ctx context.Context, out chan<- Delivery) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.cfg.StreamKey, ">"},
			Count:    q.cfg.BatchSize,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XReadGroup failed", zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !q.deliver(ctx, out, msg) {
					return
				}
			}
		}
	}
}

func (q *RedisStreamReceiptQueueImpl) claimLoop(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	start := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		claimed, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.cfg.StreamKey,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    q.cfg.BatchSize,
			Start:    start,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XAutoClaim failed", zap.Error(err))
			continue
		}
		start = next
		if start == "" {
			start = "0-0"
		}

		for _, msg := range claimed {
			if q.exceededRetries(ctx, msg.ID) {
				continue
			}
			if !q.deliver(ctx, out, msg) {
				return
			}
		}
	}
}

// exceededRetries 投遞次數超過上限時直接 ACK 丟棄
func (q *RedisStreamReceiptQueueImpl) exceededRetries(ctx context.Context, messageID string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.cfg.StreamKey,
		Group:  q.group,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			q.log.Warn("XPendingExt failed", zap.String("message_id", messageID), zap.Error(err))
		}
		return false
	}
	retries := int(pending[0].RetryCount)
	if retries < q.cfg.MaxRetryCount {
		return false
	}
	q.log.Warn("discard poison receipt",
		zap.String("message_id", messageID),
		zap.Int("retries", retries),
		zap.Int("max_retries", q.cfg.MaxRetryCount),
	)
	q.ack(ctx, messageID)
	return true
}

// deliver 回傳 false 表示 ctx 已取消
func (q *RedisStreamReceiptQueueImpl) deliver(ctx context.Context, out chan<- Delivery, msg redis.XMessage) bool {
	d, ok := q.toDelivery(ctx, msg)
	if !ok {
		return true
	}
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *RedisStreamReceiptQueueImpl) toDelivery(ctx context.Context, msg redis.XMessage) (Delivery, bool) {
	raw, ok := msg.Values[receiptField].(string)
	if !ok {
		q.log.Warn("invalid message: missing receipt field", zap.String("message_id", msg.ID))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}
	var receipt model.PurchaseReceipt
	if err := json.Unmarshal([]byte(raw), &receipt); err != nil {
		q.log.Warn("unmarshal receipt failed", zap.String("message_id", msg.ID), zap.Error(err))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}

	id := msg.ID
	return Delivery{
		Data: &receipt,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，ClaimMinIdleTime 之後由 claimLoop 領回，形成延遲重試
				q.log.Info("receipt nack(requeue), will retry", zap.String("message_id", id))
				return
			}
			q.ack(ctx, id)
		},
	}, true
}

func (q *RedisStreamReceiptQueueImpl) ack(ctx context.Context, messageID string) {
	if err := q.client.XAck(ctx, q.cfg.StreamKey, q.group, messageID).Err(); err != nil {
		q.log.Error("XAck failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
