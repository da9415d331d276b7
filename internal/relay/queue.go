package relay

import (
	"context"
	"time"
)

// maxDeliveries 是单条意图的最大投递次数，超过后放弃重试，失败原因
// 以流水中的 failed 状态为准。
const maxDeliveries = 3

// Message 是队列中流转的投递单元。意图本体存在流水中，队列只携带
// 定位与调度信息：目标链用于消费侧的交叉校验，Attempt 记录当前是第
// 几次投递，重试时递增。
type Message struct {
	IntentID   string `json:"intent_id"`
	ChainID    uint64 `json:"chain_id"`
	Attempt    int    `json:"attempt"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// NewMessage 构造一条首次投递的消息。
func NewMessage(intentID string, chainID uint64) Message {
	return Message{
		IntentID:   intentID,
		ChainID:    chainID,
		Attempt:    1,
		EnqueuedAt: time.Now().Unix(),
	}
}

// retry 返回递增了投递次数的副本，以及是否还允许重试。
func (m Message) retry() (Message, bool) {
	if m.Attempt >= maxDeliveries {
		return m, false
	}
	m.Attempt++
	return m, true
}

// Handler 处理来自队列的意图投递。
type Handler func(ctx context.Context, msg Message) error

// Producer 负责向队列投递待执行的意图。
type Producer interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Consumer 负责从队列中消费意图。消费失败且错误可重试时，驱动按
// Attempt 重新投递，直到超过 maxDeliveries。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
