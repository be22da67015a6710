// Package mq 的降级实现：队列未配置或显式禁用时，任务被接受并丢弃.
// 调用方不需要对队列缺席做特殊分支，只会在日志与计数器里看到降级痕迹.
package mq

import (
	"context"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/metrics"
)

// init 注册 noop 工厂.
func init() {
	RegisterFactory(configs.MQTypeNoop, noopFactory)
}

// discardedTasks 降级模式下被丢弃的任务计数.
var discardedTasks = metrics.NewCounter(
	"mq_noop_discarded_total",
	"Tasks accepted and discarded while the queue runs in degraded (noop) mode",
	[]string{"topic"},
)

type noopPublisher struct {
	logger watermill.LoggerAdapter
}

func (p *noopPublisher) Publish(topic string, msgs ...*message.Message) error {
	discardedTasks.WithLabelValues(topic).Add(float64(len(msgs)))
	p.logger.Debug("degraded mq: task discarded", watermill.LogFields{"topic": topic, "count": len(msgs)})

	return nil
}

func (p *noopPublisher) Close() error { return nil }

type noopSubscriber struct{}

// Subscribe 返回一个永不投递的通道，随 ctx 结束关闭.
func (s *noopSubscriber) Subscribe(ctx context.Context, _ string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}

func (s *noopSubscriber) Close() error { return nil }

// noopFactory 创建降级 Publisher & Subscriber，初始化时记录一次警告.
func noopFactory(
	_ context.Context,
	_ *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	logger.Info("message queue disabled, running in degraded noop mode", nil)

	return &noopPublisher{logger: logger}, &noopSubscriber{}, nil
}
