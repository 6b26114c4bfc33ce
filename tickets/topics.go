package tickets

// Kafka Topics
const (
	// TopicLiftTickets carries one serialized LiftTicket per message, no key, no headers
	TopicLiftTickets = "LiftTickets.Purchases"

	// DefaultPartitions is the partition count used when the publisher creates the topic
	DefaultPartitions = 10

	// DefaultReplicationFactor is the replication factor used when the publisher creates the topic
	DefaultReplicationFactor = 1
)
