package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushCollector records into a private Prometheus registry and pushes it to a Pushgateway.
// Runs are batch jobs, so nothing is scraped; Push is called once at the end.
type PushCollector struct {
	gatewayURL string
	job        string
	reg        *prometheus.Registry

	records  *prometheus.CounterVec // lift_tickets_records_total{kind}
	retries  prometheus.Counter
	batches  prometheus.Counter
	bytes    prometheus.Counter
	triggers prometheus.Counter
}

// NewPushCollector constructs a collector for the given Pushgateway job.
func NewPushCollector(job, gatewayURL string) (*PushCollector, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("pushgateway URL is required")
	}
	if job == "" {
		job = "lift-tickets"
	}

	c := &PushCollector{
		gatewayURL: gatewayURL,
		job:        job,
		reg:        prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lift_tickets_records_total",
			Help: "Records handled by the run, partitioned by kind (produced, ingested).",
		}, []string{"kind"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_tickets_buffer_full_retries_total",
			Help: "Produce attempts rejected because the local send queue was full.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_tickets_batches_materialized_total",
			Help: "Batches written, staged and followed by a task trigger.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_tickets_staged_bytes_total",
			Help: "Bytes of columnar artifacts uploaded to the stage.",
		}),
		triggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_tickets_task_triggers_total",
			Help: "Materialization task executions requested.",
		}),
	}

	for _, col := range []prometheus.Collector{c.records, c.retries, c.batches, c.bytes, c.triggers} {
		if err := c.reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return c, nil
}

func (c *PushCollector) IncrementRecordsProduced()   { c.records.WithLabelValues("produced").Inc() }
func (c *PushCollector) IncrementBufferFullRetries() { c.retries.Inc() }
func (c *PushCollector) AddRecordsIngested(n int) {
	c.records.WithLabelValues("ingested").Add(float64(n))
}
func (c *PushCollector) IncrementBatchesMaterialized() { c.batches.Inc() }
func (c *PushCollector) AddBytesStaged(n int64)        { c.bytes.Add(float64(n)) }
func (c *PushCollector) IncrementTaskTriggers()        { c.triggers.Inc() }

// Push sends the current registry to the Pushgateway, replacing the job's previous group.
func (c *PushCollector) Push() error {
	if err := push.New(c.gatewayURL, c.job).Gatherer(c.reg).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", c.gatewayURL, err)
	}
	return nil
}
