package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector is registered", func() {
				So(manager, ShouldNotBeNil)
				manager.batchesTotal.Inc()
				count, err := testutil.GatherAndCount(registry, "dodo_sync_batches_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.batchesTotal.Inc()

			Convey("Then names and labels follow the options", func() {
				expected := `
# HELP test_unit_batches_total Total number of batch syncs
# TYPE test_unit_batches_total counter
test_unit_batches_total{env="test"} 1
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_batches_total"), ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording sync metrics", func() {
			before := testutil.ToFloat64(globalManager.syncsTotal.WithLabelValues("workout", ResultSuccess))
			RecordSync("workout", ResultSuccess, 1.5)
			RecordSync("workout", ResultSuccess, 2.5)

			Convey("Then the labelled counter moves", func() {
				after := testutil.ToFloat64(globalManager.syncsTotal.WithLabelValues("workout", ResultSuccess))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording insights by priority", func() {
			before := testutil.ToFloat64(globalManager.insightsGenerated.WithLabelValues("high"))
			RecordInsight("high")

			Convey("Then only that priority moves", func() {
				So(testutil.ToFloat64(globalManager.insightsGenerated.WithLabelValues("high"))-before, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateRepositoryRecordsTotal(42)
			UpdateRepositoryShardCount(16)
			UpdateWorkerCount(4)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.repositoryRecordsTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.repositoryShardCount), ShouldEqual, 16)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When recording everything else", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordSecondaryFailure("mental-coach")
					RecordBatch()
					RecordOverallScore(71)
					RecordRequestDuplicate()
					RecordSnapshotPersisted()
					RecordRepositoryAppend(0.2)
					RecordRepositoryEviction()
					RecordRepositoryQueryLatency(0.1)
					RecordRepositorySnapshotWrite()
					UpdateQueueUtilization(0.07)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerActiveCount(1)
					RecordWorkerProcessingLatency(3)
					RecordWorkerError()
					RecordNotificationDispatched()
					RecordNotificationDuplicate()
					RecordHTTPRequest("/v1/sync", "POST", "200")
					RecordHTTPRequestDuration("/v1/sync", "POST", "200", 4)
					RecordErrorByComponent("repository", "invalid_key")
				}, ShouldNotPanic)
			})
		})

		Convey("When exposing the registry", func() {
			Convey("Then the custom registry is returned", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
