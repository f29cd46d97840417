package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter set carried over from the previous middleware so existing
// dashboards keep working without relabeling.
var (
	pipelineSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicom_middleware_pipeline_success_total",
		Help: "Successful pipeline runs",
	})

	pipelineFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicom_middleware_pipeline_failure_total",
		Help: "Failed pipeline runs",
	}, []string{"reason"})

	dlqMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicom_middleware_dlq_messages_total",
		Help: "Messages sent to DLQ",
	}, []string{"reason"})

	storageUploadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicom_middleware_storage_upload_total",
		Help: "Storage uploads by backend and status",
	}, []string{"backend", "status"})
)
