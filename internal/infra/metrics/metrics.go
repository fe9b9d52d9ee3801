package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_api_requests_total",
			Help: "Total number of outbound API requests",
		},
		[]string{"provider", "method", "status"},
	)

	apiRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_api_retries_total",
			Help: "Total number of retried outbound API requests",
		},
		[]string{"provider", "reason"},
	)

	apiFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_api_failures_total",
			Help: "Total number of outbound API requests that ended in failure",
		},
		[]string{"provider", "kind"},
	)

	quotaPausesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_quota_pauses_total",
			Help: "Total number of pauses caused by a low remaining quota",
		},
		[]string{"provider"},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_sync_runs_total",
			Help: "Total number of campaign sync runs",
		},
		[]string{"mode", "result"},
	)

	activitiesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_activities_total",
			Help: "Activities handled by the cache, by outcome",
		},
		[]string{"outcome"},
	)

	crmContactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_crm_contacts_total",
			Help: "CRM contact updates, by outcome",
		},
		[]string{"outcome"},
	)

	lastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadsync_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful campaign sync",
		},
	)
)

func RecordAPIRequest(provider, method, status string) {
	apiRequestsTotal.WithLabelValues(provider, method, status).Inc()
}

func RecordAPIRetry(provider, reason string) {
	apiRetriesTotal.WithLabelValues(provider, reason).Inc()
}

func RecordAPIFailure(provider, kind string) {
	apiFailuresTotal.WithLabelValues(provider, kind).Inc()
}

func RecordQuotaPause(provider string) {
	quotaPausesTotal.WithLabelValues(provider).Inc()
}

func RecordSyncRun(mode, result string) {
	syncRunsTotal.WithLabelValues(mode, result).Inc()
}

func RecordActivities(inserted, ignored, rejected int) {
	activitiesPersisted.WithLabelValues("inserted").Add(float64(inserted))
	activitiesPersisted.WithLabelValues("ignored").Add(float64(ignored))
	activitiesPersisted.WithLabelValues("rejected").Add(float64(rejected))
}

func RecordCRMContacts(succeeded, failed, skipped int) {
	crmContactsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	crmContactsTotal.WithLabelValues("failed").Add(float64(failed))
	crmContactsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

func SetLastSync(unixSeconds float64) {
	lastSyncTimestamp.Set(unixSeconds)
}
