package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	xerrors "AgentKit-EVM/internal/errors"
	"AgentKit-EVM/internal/journal"
	"AgentKit-EVM/internal/toolkit"
	"AgentKit-EVM/pkg/logger"
)

// Executor 定义了执行一个意图所需的能力，由 toolkit.Client 实现。
type Executor interface {
	ExecuteIntent(ctx context.Context, intent *toolkit.Intent) (*toolkit.Intent, error)
}

// Worker 从队列中消费意图 ID，从流水中还原意图并交给执行器。
// 构造与执行解耦之后，守护进程可以先快速应答 requested 意图，
// 再由 Worker 异步完成上链。
type Worker struct {
	executor    Executor
	store       journal.Store
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
}

// WorkerOption 定义可选配置。
type WorkerOption func(*Worker)

// WithWorkerLogger 指定日志输出。
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) WorkerOption {
	return func(w *Worker) {
		if workers > 0 {
			w.workerCount = workers
		}
	}
}

// NewWorker 构造 Worker。
func NewWorker(executor Executor, store journal.Store, consumer Consumer, opts ...WorkerOption) *Worker {
	w := &Worker{
		executor:    executor,
		store:       store,
		consumer:    consumer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.logger == nil {
		w.logger = logger.Named("relay")
	}
	return w
}

// Start 启动意图执行循环，阻塞直到 ctx 取消。
func (w *Worker) Start(ctx context.Context) error {
	if w.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置意图消费者")
	}
	return w.consumer.Consume(ctx, w.workerCount, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg Message) error {
	if w.store == nil || w.executor == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "Worker 未初始化")
	}

	record, err := w.store.Get(ctx, msg.IntentID)
	if err != nil {
		w.logger.Warn("读取意图流水失败", "intent", msg.IntentID, "err", err)
		return err
	}
	// 只有 requested 状态的意图需要执行，重复投递直接跳过。
	if record.Status != journal.StatusRequested {
		w.logger.Debug("跳过意图", "intent", msg.IntentID, "status", record.Status)
		return nil
	}
	// 流水是事实来源；消息中的链只用于交叉校验，不一致说明投递方
	// 持有过期的意图视图。
	if msg.ChainID != 0 && msg.ChainID != record.ChainID {
		w.logger.Warn("消息与流水的目标链不一致，以流水为准",
			"intent", msg.IntentID, "msg_chain", msg.ChainID, "chain", record.ChainID)
	}

	intent, err := intentFromRecord(record)
	if err != nil {
		w.logger.Warn("还原意图失败", "intent", msg.IntentID, "err", err)
		if markErr := w.store.MarkFailed(ctx, msg.IntentID, err.Error()); markErr != nil {
			w.logger.Warn("更新意图流水失败", "intent", msg.IntentID, "err", markErr)
		}
		return err
	}

	if _, err := w.executor.ExecuteIntent(ctx, intent); err != nil {
		w.logger.Warn("意图执行失败", "intent", msg.IntentID, "attempt", msg.Attempt, "err", err)
		return err
	}
	return nil
}

// intentFromRecord 把流水记录还原成可执行的意图。
func intentFromRecord(record *journal.Record) (*toolkit.Intent, error) {
	var ops toolkit.Operations
	if err := json.Unmarshal(record.Ops, &ops); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析意图操作失败")
	}
	if len(ops) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "意图不包含任何操作")
	}
	return &toolkit.Intent{
		ID:          record.ID,
		Description: record.Description,
		ChainID:     record.ChainID,
		Ops:         ops,
		CreatedAt:   record.CreatedAt,
	}, nil
}
