package models

import "time"

// RegistryStatistics aggregates counts and mean metrics across all models
// in the registry. Pure read output of MetadataStore.ComputeStatistics.
type RegistryStatistics struct {
	TotalModels      int                `json:"total_models"`
	TotalVersions    int                `json:"total_versions"`
	StatusCounts     map[Status]int     `json:"status_counts"`
	ProductionModels int                `json:"production_models"`
	MeanMetrics      map[string]float64 `json:"mean_metrics"`
}

// VersionComparison is one row of a compare-versions result: the version's
// immutable registration metadata plus the value of the requested metric.
type VersionComparison struct {
	VersionID   string             `json:"version_id"`
	Status      Status             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	MetricName  string             `json:"metric_name"`
	MetricValue float64            `json:"metric_value"`
	HasMetric   bool               `json:"has_metric"`
	Metrics     map[string]float64 `json:"metrics"`
}
