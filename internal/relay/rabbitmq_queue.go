package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// RabbitMQQueue 使用 RabbitMQ 实现意图中继队列。消息体是 Message 的
// JSON 编码；重试不依赖 broker 的 redeliver，而是带着递增的 Attempt
// 重新发布，保证投递次数跨消费者可见。
type RabbitMQQueue struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	durable bool
}

// NewRabbitMQQueue 创建 RabbitMQ 队列实例。
func NewRabbitMQQueue(cfg RabbitMQConfig) (*RabbitMQQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "agentkit.intents"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("设置 RabbitMQ QOS 失败: %w", err)
		}
	}
	_, err = ch.QueueDeclare(queue, cfg.Durable, cfg.AutoDelete, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return &RabbitMQQueue{conn: conn, ch: ch, queue: queue, durable: cfg.Durable}, nil
}

// Publish 将意图投递到 RabbitMQ。队列声明为 durable 时消息同样落盘，
// 进程重启不丢失待执行的意图。
func (q *RabbitMQQueue) Publish(ctx context.Context, msg Message) error {
	if q == nil || q.ch == nil {
		return errors.New("RabbitMQ 队列未初始化")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "编码意图消息失败")
	}
	deliveryMode := amqp.Transient
	if q.durable {
		deliveryMode = amqp.Persistent
	}
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		MessageId:    msg.IntentID,
		Body:         body,
	})
}

// Consume 使用手动确认模式消费 RabbitMQ 队列。无法解码的消息直接确认
// 丢弃；处理失败且可重试的消息带着递增的 Attempt 重新发布后再确认，
// 避免原消息在 broker 侧无限重投。
func (q *RabbitMQQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if q == nil || q.ch == nil {
		return errors.New("RabbitMQ 队列未初始化")
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("订阅 RabbitMQ 队列失败: %w", err)
	}
	log := logger.Named("relay.rabbitmq")

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case delivery, ok := <-deliveries:
					if !ok {
						return
					}
					var msg Message
					if err := json.Unmarshal(delivery.Body, &msg); err != nil {
						log.Warn("丢弃无法解码的意图消息", "message_id", delivery.MessageId, "err", err)
						_ = delivery.Ack(false)
						continue
					}
					err := handler(ctx, msg)
					if err != nil && xerrors.RetryableError(err) {
						if next, retry := msg.retry(); retry {
							if pubErr := q.Publish(ctx, next); pubErr != nil {
								log.Warn("重新投递意图失败", "intent", msg.IntentID, "err", pubErr)
							}
						} else {
							log.Warn("意图超过最大投递次数", "intent", msg.IntentID, "attempt", msg.Attempt)
						}
					}
					_ = delivery.Ack(false)
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close 关闭 RabbitMQ 连接。
func (q *RabbitMQQueue) Close() error {
	if q == nil {
		return nil
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
