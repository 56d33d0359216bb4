package opt

import "sync"

// In-process store of search metrics keyed by run id, read back by the API
// layer when reporting on finished runs.

var (
	mu           sync.Mutex
	metricsByRun = map[string]Metrics{}
)

func RecordMetrics(runID string, m Metrics) {
	mu.Lock()
	metricsByRun[runID] = m
	mu.Unlock()
}

func GetMetrics(runID string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := metricsByRun[runID]
	return m, ok
}
