package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything in g to a Pushgateway under the given job. Batch
// builds exit before a scrape could reach them, so they push instead.
func Push(ctx context.Context, url string, job string, g prometheus.Gatherer) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
