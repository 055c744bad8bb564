package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolStats es lo que expone un store con pool de conexiones.
type PoolStats interface {
	PoolStat() (acquired, idle, total int32, ok bool)
}

// dbPoolCollector expone gauges del pool de la base.
type dbPoolCollector struct {
	src PoolStats

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

// NewDBPoolCollector crea el collector para src.
func NewDBPoolCollector(src PoolStats) prometheus.Collector {
	return &dbPoolCollector{
		src:          src,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	acquired, idle, total, ok := c.src.PoolStat()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(acquired))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(idle))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(total))
}
