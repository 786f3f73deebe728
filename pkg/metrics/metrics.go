package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veesix-networks/osvswitch/pkg/rifmgr"
)

const namespace = "osvswitch"

var (
	routerInterfacesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "router_interfaces"),
		"Number of programmed router interfaces.",
		[]string{"type", "locality"},
		nil,
	)
	toMeRoutesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "to_me_routes"),
		"Number of to-me routes owned by router interfaces.",
		[]string{"locality"},
		nil,
	)
)

// Source lists the router interface handles. *rifmgr.Manager satisfies it.
type Source interface {
	List() []rifmgr.HandleInfo
}

// Collector exports gauges derived from the handle table at scrape time.
type Collector struct {
	source Source
}

func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- routerInterfacesDesc
	ch <- toMeRoutesDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	type rifKey struct {
		typ      string
		locality string
	}

	rifs := make(map[rifKey]int)
	routes := map[string]int{"local": 0, "remote": 0}

	for _, info := range c.source.List() {
		loc := Locality(info.Local)
		rifs[rifKey{typ: info.Type.String(), locality: loc}]++
		routes[loc] += len(info.ToMeRoutes)
	}

	for k, n := range rifs {
		ch <- prometheus.MustNewConstMetric(routerInterfacesDesc, prometheus.GaugeValue, float64(n), k.typ, k.locality)
	}
	for loc, n := range routes {
		ch <- prometheus.MustNewConstMetric(toMeRoutesDesc, prometheus.GaugeValue, float64(n), loc)
	}
}

func Locality(local bool) string {
	if local {
		return "local"
	}
	return "remote"
}

// Operations counts router interface operations by outcome.
type Operations struct {
	vec *prometheus.CounterVec
}

func NewOperations() *Operations {
	return &Operations{
		vec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_interface_operations_total",
			Help:      "Router interface operations applied, by operation, locality and result.",
		}, []string{"op", "locality", "result"}),
	}
}

func (o *Operations) Observe(op string, local bool, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	o.vec.WithLabelValues(op, Locality(local), result).Inc()
}

func (o *Operations) Describe(ch chan<- *prometheus.Desc) {
	o.vec.Describe(ch)
}

func (o *Operations) Collect(ch chan<- prometheus.Metric) {
	o.vec.Collect(ch)
}
