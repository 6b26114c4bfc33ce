package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// TopicEntry represents configuration for a single Kafka topic read from YAML
type TopicEntry struct {
	Partitions        int                    `yaml:"partitions"`
	ReplicationFactor int                    `yaml:"replication_factor"`
	Other             map[string]interface{} `yaml:",inline"`
}

type TopicFile struct {
	Topics map[string]TopicEntry `yaml:"topics"`
}

// loadTopicSpecs reads the topic file and returns specs sorted by name.
// Missing partitions and replication factor take the lift tickets defaults.
func loadTopicSpecs(path string) ([]kafkaclient.TopicSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var tf TopicFile
	if err := yaml.Unmarshal(content, &tf); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	names := make([]string, 0, len(tf.Topics))
	for name := range tf.Topics {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]kafkaclient.TopicSpec, 0, len(names))
	for _, name := range names {
		entry := tf.Topics[name]
		spec := kafkaclient.TopicSpec{
			Name:              name,
			Partitions:        entry.Partitions,
			ReplicationFactor: entry.ReplicationFactor,
			Config:            make(map[string]string, len(entry.Other)),
		}
		if spec.Partitions == 0 {
			spec.Partitions = tickets.DefaultPartitions
		}
		if spec.ReplicationFactor == 0 {
			spec.ReplicationFactor = tickets.DefaultReplicationFactor
		}
		if spec.Partitions < 0 || spec.ReplicationFactor < 0 {
			return nil, fmt.Errorf("topic %s: partitions and replication_factor must be positive", name)
		}
		for k, v := range entry.Other {
			spec.Config[k] = fmt.Sprint(v)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
