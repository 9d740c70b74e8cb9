package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for batch runs.
const PushJob = "covid_alberta_etl"

// Push sends every metric gathered by g to a Pushgateway, replacing the
// previous push for the job. Batch runs exit before Prometheus can scrape
// them, so they report this way instead.
func Push(ctx context.Context, gatewayURL string, g prometheus.Gatherer) error {
	if err := push.New(gatewayURL, PushJob).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
