package consumer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConsumer is a mock implementation of kafkaclient.Consumer
type MockConsumer struct {
	mock.Mock
}

func (m *MockConsumer) Subscribe(topics []string, rebalanceCb kafka.RebalanceCb) error {
	args := m.Called(topics, rebalanceCb)
	return args.Error(0)
}

func (m *MockConsumer) ReadMessage(timeoutMs int) (*kafka.Message, error) {
	args := m.Called(timeoutMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kafka.Message), args.Error(1)
}

func (m *MockConsumer) CommitMessage(message *kafka.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockConsumer) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConsumer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func message(value string) *kafka.Message {
	topic := "LiftTickets.Purchases"
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 3, Offset: 7},
		Value:          []byte(value),
	}
}

var timedOut = kafka.NewError(kafka.ErrTimedOut, "timed out", false)

// fakeClock advances by step on every reading
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestStreamer(consumer *MockConsumer, out *bytes.Buffer, idle time.Duration) *Streamer {
	s := NewStreamer(consumer, out, Options{Topic: "LiftTickets.Purchases", IdleTimeout: idle, PollTimeout: 100 * time.Millisecond})
	s.now = (&fakeClock{t: time.Unix(0, 0), step: time.Second}).now
	return s
}

func TestStreamWritesValuesThenSentinel(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", []string{"LiftTickets.Purchases"}, mock.Anything).Return(nil)
	consumer.On("Commit").Return(nil)
	consumer.On("ReadMessage", 100).Return(message(`{"txid":"a"}`), nil).Once()
	consumer.On("ReadMessage", 100).Return(message("{\"txid\":\"b\"}\n"), nil).Once()
	consumer.On("ReadMessage", 100).Return(nil, timedOut)

	var out bytes.Buffer
	n, err := newTestStreamer(consumer, &out, 3*time.Second).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "{\"txid\":\"a\"}\n{\"txid\":\"b\"}\n\n", out.String())
	consumer.AssertExpectations(t)
}

func TestStreamSkipsEmptyValues(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("Commit").Return(nil)
	consumer.On("ReadMessage", 100).Return(message("\n"), nil).Once()
	consumer.On("ReadMessage", 100).Return(message("x"), nil).Once()
	consumer.On("ReadMessage", 100).Return(nil, timedOut)

	var out bytes.Buffer
	n, err := newTestStreamer(consumer, &out, time.Second).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x\n\n", out.String())
}

func TestStreamContinuesOnTransientErrors(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("Commit").Return(nil)
	consumer.On("ReadMessage", 100).Return(nil, kafka.NewError(kafka.ErrTransport, "broker down", false)).Once()
	consumer.On("ReadMessage", 100).Return(message("x"), nil).Once()
	consumer.On("ReadMessage", 100).Return(nil, timedOut)

	var out bytes.Buffer
	n, err := newTestStreamer(consumer, &out, time.Second).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStreamFatalError(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("ReadMessage", 100).Return(message("x"), nil).Once()
	consumer.On("ReadMessage", 100).Return(nil, kafka.NewError(kafka.ErrFatal, "fenced", true)).Once()

	var out bytes.Buffer
	n, err := newTestStreamer(consumer, &out, 0).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, n)
	// no sentinel and no commit, the stream did not end cleanly
	assert.Equal(t, "x\n", out.String())
	consumer.AssertNotCalled(t, "Commit")
}

func TestStreamStopsOnCancel(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("Commit").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.On("ReadMessage", 100).Return(message("x"), nil).Once().Run(func(mock.Arguments) { cancel() })

	var out bytes.Buffer
	n, err := newTestStreamer(consumer, &out, 0).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x\n\n", out.String())
}

func TestStreamSubscribeFailure(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(errors.New("unknown topic"))

	var out bytes.Buffer
	_, err := newTestStreamer(consumer, &out, 0).Run(context.Background())

	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestStreamCommitsAfterSentinel(t *testing.T) {
	var out bytes.Buffer
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("ReadMessage", 100).Return(message("x"), nil).Once()
	consumer.On("ReadMessage", 100).Return(nil, timedOut)
	consumer.On("Commit").Return(nil).Run(func(mock.Arguments) {
		assert.Equal(t, "x\n\n", out.String(), "output must be flushed before offsets are committed")
	}).Once()

	_, err := newTestStreamer(consumer, &out, time.Second).Run(context.Background())

	require.NoError(t, err)
	consumer.AssertExpectations(t)
}

func TestStreamCommitFailure(t *testing.T) {
	consumer := new(MockConsumer)
	consumer.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	consumer.On("ReadMessage", 100).Return(nil, timedOut)
	consumer.On("Commit").Return(kafka.NewError(kafka.ErrTransport, "broker down", false))

	var out bytes.Buffer
	_, err := newTestStreamer(consumer, &out, time.Second).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.Equal(t, "\n", out.String())
}
