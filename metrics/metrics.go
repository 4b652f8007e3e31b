// Package metrics counts firings and rejections with Prometheus.
package metrics

import (
	"context"

	"github.com/jt05610/ptnet"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a ptnet.Observer that records every firing outcome.
type Collector struct {
	firings    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	sequence   *prometheus.GaugeVec
}

var _ ptnet.Observer = (*Collector)(nil)

// New creates the collector's metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		firings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptnet",
			Name:      "firings_total",
			Help:      "Committed transition firings.",
		}, []string{"transition"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptnet",
			Name:      "rejections_total",
			Help:      "Rejected transition firings by reason.",
		}, []string{"transition", "reason"}),
		sequence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ptnet",
			Name:      "sequence",
			Help:      "Sequence number of the last committed record.",
		}, []string{"machine"}),
	}
	for _, m := range []prometheus.Collector{c.firings, c.rejections, c.sequence} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) Committed(_ context.Context, machine string, rec ptnet.Record) {
	c.firings.WithLabelValues(rec.Transition).Inc()
	c.sequence.WithLabelValues(machine).Set(float64(rec.Seq))
}

func (c *Collector) Rejected(_ context.Context, _, transition string, err error) {
	c.rejections.WithLabelValues(transition, ptnet.Reason(err)).Inc()
}

// Observe sets the sequence gauge for a machine that was restored rather than
// fired.
func (c *Collector) Observe(m *ptnet.Machine) {
	c.sequence.WithLabelValues(m.ID()).Set(float64(m.Seq()))
}

// WriteTextfile writes everything gathered by g to path in the node exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

func (c *Collector) Firings() *prometheus.CounterVec { return c.firings }

func (c *Collector) Rejections() *prometheus.CounterVec { return c.rejections }

func (c *Collector) Sequence() *prometheus.GaugeVec { return c.sequence }
