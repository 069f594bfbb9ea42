package mq

import (
	"context"
	"discuss/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errMalformed = errors.New("malformed message")

// Handler 处理评论和表态事件，实现方负责更新计数并清理缓存。
// 同一事件可能被投递多次，实现必须幂等。
type Handler interface {
	HandleCommentEvent(ctx context.Context, msg models.CommentMsg) error
	HandleReactionEvent(ctx context.Context, msg models.ReactionMsg) error
}

// Publisher 把写操作的事件发到队列；没有 MQ 或发送失败时直接同步处理
type Publisher struct {
	rabbit *RabbitMQ
	inline Handler
}

func NewPublisher(rabbit *RabbitMQ, inline Handler) *Publisher {
	return &Publisher{rabbit: rabbit, inline: inline}
}

func (p *Publisher) CommentChanged(ctx context.Context, msg models.CommentMsg) {
	if p.send(ctx, CommentQueue, msg) {
		return
	}
	if err := p.inline.HandleCommentEvent(ctx, msg); err != nil {
		zap.L().Error("inline comment event failed", zap.Uint("comment_id", msg.CommentID), zap.Error(err))
	}
}

func (p *Publisher) ReactionChanged(ctx context.Context, msg models.ReactionMsg) {
	if p.send(ctx, ReactionQueue, msg) {
		return
	}
	if err := p.inline.HandleReactionEvent(ctx, msg); err != nil {
		zap.L().Error("inline reaction event failed", zap.String("entity", string(msg.EntityKind)), zap.Uint("entity_id", msg.EntityID), zap.Error(err))
	}
}

func (p *Publisher) send(ctx context.Context, queue string, msg interface{}) bool {
	if p.rabbit == nil {
		return false
	}
	body, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("marshal event failed", zap.String("queue", queue), zap.Error(err))
		return false
	}
	if _, err := p.rabbit.Publish(ctx, queue, body); err != nil {
		zap.L().Warn("publish failed, handling inline", zap.String("queue", queue), zap.Error(err))
		return false
	}
	return true
}

// Consumer 消费 comment_queue 和 react_queue
type Consumer struct {
	rabbit  *RabbitMQ
	handler Handler
	wg      sync.WaitGroup
}

func NewConsumer(rabbit *RabbitMQ, handler Handler) *Consumer {
	return &Consumer{rabbit: rabbit, handler: handler}
}

// Start 启动所有消费者，ctx 取消或连接关闭后退出
func (c *Consumer) Start(ctx context.Context) {
	if c.rabbit == nil {
		return
	}
	c.run(ctx, CommentQueue, func(ctx context.Context, body []byte) error {
		var msg models.CommentMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return c.handler.HandleCommentEvent(ctx, msg)
	})
	c.run(ctx, ReactionQueue, func(ctx context.Context, body []byte) error {
		var msg models.ReactionMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return c.handler.HandleReactionEvent(ctx, msg)
	})
}

// Wait 等待所有消费协程退出
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context, queue string, handle func(context.Context, []byte) error) {
	msgs, err := c.rabbit.Consume(queue)
	if err != nil {
		zap.L().Error("failed to start consumer", zap.String("queue", queue), zap.Error(err))
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		zap.L().Info("waiting for messages", zap.String("queue", queue))
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				c.deliver(ctx, queue, d, handle)
			}
		}
	}()
}

func (c *Consumer) deliver(ctx context.Context, queue string, d amqp.Delivery, handle func(context.Context, []byte) error) {
	err := handle(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	if errors.Is(err, errMalformed) || d.Redelivered {
		// 格式错误或已经重投过一次，丢弃
		zap.L().Error("drop message", zap.String("queue", queue), zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	zap.L().Warn("requeue message", zap.String("queue", queue), zap.String("message_id", d.MessageId), zap.Error(err))
	_ = d.Nack(false, true)
}
