package mq

import (
	"context"
	"discuss/internal/models"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	comments  []models.CommentMsg
	reactions []models.ReactionMsg
	err       error
}

func (h *recordingHandler) HandleCommentEvent(_ context.Context, msg models.CommentMsg) error {
	h.comments = append(h.comments, msg)
	return h.err
}

func (h *recordingHandler) HandleReactionEvent(_ context.Context, msg models.ReactionMsg) error {
	h.reactions = append(h.reactions, msg)
	return h.err
}

type ack struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ack) Ack(uint64, bool) error { a.acked++; return nil }
func (a *ack) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}
func (a *ack) Reject(uint64, bool) error { return nil }

func TestPublisherWithoutBrokerHandlesInline(t *testing.T) {
	h := &recordingHandler{}
	p := NewPublisher(nil, h)

	p.CommentChanged(context.Background(), models.CommentMsg{PostID: 1, CommentID: 2, Action: "create"})
	p.ReactionChanged(context.Background(), models.ReactionMsg{EntityKind: models.EntityPost, EntityID: 1, Action: "like"})

	require.Len(t, h.comments, 1)
	require.Len(t, h.reactions, 1)
	assert.Equal(t, uint(2), h.comments[0].CommentID)
	assert.Equal(t, models.EntityPost, h.reactions[0].EntityKind)
}

func TestPublisherInlineErrorIsLogged(t *testing.T) {
	h := &recordingHandler{err: errors.New("db down")}
	p := NewPublisher(nil, h)

	assert.NotPanics(t, func() {
		p.CommentChanged(context.Background(), models.CommentMsg{CommentID: 1})
	})
}

func TestDeliver(t *testing.T) {
	body, _ := json.Marshal(models.CommentMsg{CommentID: 9})
	handle := func(fail error) func(context.Context, []byte) error {
		return func(_ context.Context, b []byte) error {
			var msg models.CommentMsg
			if err := json.Unmarshal(b, &msg); err != nil {
				return errMalformed
			}
			return fail
		}
	}
	c := &Consumer{}

	t.Run("ack on success", func(t *testing.T) {
		a := &ack{}
		c.deliver(context.Background(), CommentQueue, amqp.Delivery{Acknowledger: a, Body: body}, handle(nil))
		assert.Equal(t, 1, a.acked)
	})

	t.Run("requeue once on failure", func(t *testing.T) {
		a := &ack{}
		c.deliver(context.Background(), CommentQueue, amqp.Delivery{Acknowledger: a, Body: body}, handle(errors.New("busy")))
		assert.Equal(t, 1, a.nacked)
		assert.True(t, a.requeue)
	})

	t.Run("drop after redelivery", func(t *testing.T) {
		a := &ack{}
		c.deliver(context.Background(), CommentQueue, amqp.Delivery{Acknowledger: a, Body: body, Redelivered: true}, handle(errors.New("busy")))
		assert.Equal(t, 1, a.nacked)
		assert.False(t, a.requeue)
	})

	t.Run("drop malformed", func(t *testing.T) {
		a := &ack{}
		c.deliver(context.Background(), CommentQueue, amqp.Delivery{Acknowledger: a, Body: []byte("{")}, handle(nil))
		assert.False(t, a.requeue)
		assert.Equal(t, 1, a.nacked)
	})
}

func TestConsumerWithoutBrokerIsNoop(t *testing.T) {
	c := NewConsumer(nil, &recordingHandler{})
	c.Start(context.Background())
	c.Wait()
}
