package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
)

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error) {
	args := m.Called(topic, allTopics, timeoutMs)
	md, _ := args.Get(0).(*kafka.Metadata)
	return md, args.Error(1)
}

func (m *MockAdmin) CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error) {
	args := m.Called(ctx, topics)
	res, _ := args.Get(0).([]kafka.TopicResult)
	return res, args.Error(1)
}

func (m *MockAdmin) Close() {
	m.Called()
}

func writeTopics(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "kafka_topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTopicSpecs(t *testing.T) {
	path := writeTopics(t, `
topics:
  TESTING:
    partitions: 1
  LiftTickets.Purchases:
    cleanup.policy: delete
    retention.ms: 604800000
`)

	specs, err := loadTopicSpecs(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, kafkaclient.TopicSpec{
		Name:              "LiftTickets.Purchases",
		Partitions:        10,
		ReplicationFactor: 1,
		Config:            map[string]string{"cleanup.policy": "delete", "retention.ms": "604800000"},
	}, specs[0])
	assert.Equal(t, "TESTING", specs[1].Name)
	assert.Equal(t, 1, specs[1].Partitions)
	assert.Empty(t, specs[1].Config)
}

func TestLoadTopicSpecsErrors(t *testing.T) {
	_, err := loadTopicSpecs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadTopicSpecs(writeTopics(t, "topics: [\n"))
	assert.Error(t, err)

	_, err = loadTopicSpecs(writeTopics(t, "topics:\n  X:\n    partitions: -1\n"))
	assert.Error(t, err)
}

func TestProvision(t *testing.T) {
	md := &kafka.Metadata{Topics: map[string]kafka.TopicMetadata{
		"Existing": {Topic: "Existing"},
	}}
	admin := &MockAdmin{}
	admin.On("GetMetadata", (*string)(nil), true, mock.Anything).Return(md, nil)
	admin.On("CreateTopics", mock.Anything, mock.MatchedBy(func(s []kafka.TopicSpecification) bool {
		return s[0].Topic == "New"
	})).Return([]kafka.TopicResult{{Topic: "New", Error: kafka.NewError(kafka.ErrNoError, "", false)}}, nil)
	admin.On("CreateTopics", mock.Anything, mock.MatchedBy(func(s []kafka.TopicSpecification) bool {
		return s[0].Topic == "Broken"
	})).Return([]kafka.TopicResult{{Topic: "Broken", Error: kafka.NewError(kafka.ErrInvalidReplicationFactor, "rf", false)}}, nil)

	s := provision(context.Background(), admin, []kafkaclient.TopicSpec{
		{Name: "Broken", Partitions: 1, ReplicationFactor: 3},
		{Name: "Existing", Partitions: 10, ReplicationFactor: 1},
		{Name: "New", Partitions: 10, ReplicationFactor: 1},
	}, false)

	assert.Equal(t, summary{created: 1, existing: 1, failed: 1}, s)
}
