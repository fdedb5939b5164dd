package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(deliveryStrategy, fetchBackend string) {
	for _, status := range []string{"success", "fallback", "fetch_error", "transform_error", "finalize_error", "validation_error", "canceled"} {
		JobsTotal.WithLabelValues(status)
		LedgerJobs.WithLabelValues(status)
	}

	for _, stage := range []string{"fetching", "transforming", "finalizing", "delivering", "cleanup"} {
		StageDuration.WithLabelValues(stage)
	}

	for _, t := range []string{"segment", "dub"} {
		TransformsApplied.WithLabelValues(t)
	}

	for _, op := range []string{"inspect", "fetch"} {
		for _, status := range []string{"success", "error"} {
			FetchOperationsTotal.WithLabelValues(fetchBackend, op, status)
		}
		FetchOperationDuration.WithLabelValues(fetchBackend, op)
	}

	for _, op := range []string{"fetch", "tts"} {
		RetryAttempts.WithLabelValues(op)
		RetryExhausted.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error"} {
		TTSRequestsTotal.WithLabelValues(status)
		EncoderRunsTotal.WithLabelValues(status)
		DeliveriesTotal.WithLabelValues(deliveryStrategy, status)
		EventsPublished.WithLabelValues(status)
	}
	DeliveredBytes.WithLabelValues(deliveryStrategy)

	for _, op := range []string{"initialize_schema", "record_job", "get_job", "list_jobs", "has_artifact", "count_jobs"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
