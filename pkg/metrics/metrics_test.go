package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the collectors are registered under the kpiboard namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.snapshotsAccepted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				found := false
				for _, f := range families {
					if f.GetName() == "kpiboard_snapshots_accepted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("board"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.workerErrors.Inc()

			Convey("Then names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_board_worker_errors_total")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "kpiboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording scored people", func() {
			before := testutil.ToFloat64(globalManager.peopleScored.WithLabelValues("Good"))
			RecordComposite(600, "Good")
			RecordComposite(650, "Good")

			Convey("Then the per-level counter increases", func() {
				after := testutil.ToFloat64(globalManager.peopleScored.WithLabelValues("Good"))
				So(after-before, ShouldEqual, 2.0)
			})
		})

		Convey("When publishing a team rollup", func() {
			UpdateTeamSummary(3, 30, 45.5)

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.teamPeople), ShouldEqual, 3.0)
				So(testutil.ToFloat64(globalManager.teamAvgKPIScore), ShouldEqual, 30.0)
				So(testutil.ToFloat64(globalManager.teamRevenueRatio), ShouldEqual, 45.5)
			})
		})

		Convey("When recording refreshes and fetch failures", func() {
			before := testutil.ToFloat64(globalManager.fetchFailures.WithLabelValues("pipelines"))
			RecordRefresh("ok", 0.2)
			RecordFetchFailure("pipelines")
			RecordCRMRequest("list_users", "200", 0.05)

			Convey("Then the failure counter increases", func() {
				after := testutil.ToFloat64(globalManager.fetchFailures.WithLabelValues("pipelines"))
				So(after-before, ShouldEqual, 1.0)
			})
		})

		Convey("When updating queue and worker gauges", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(1024)
			UpdateWorkerCount(4)
			UpdateRepositoryRecords(40)

			Convey("Then the gauges are set", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12.0)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 1024.0)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4.0)
				So(testutil.ToFloat64(globalManager.repositoryRecords), ShouldEqual, 40.0)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordSnapshotAccepted()
				RecordSnapshotDuplicate()
				RecordSnapshotRejected("queue_full")
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(1.5)
				RecordWorkerError()
				RecordRepositoryUpdateLatency(0.2)
				RecordRepositoryQueryLatency(0.1)
				RecordRepositorySnapshot(0.01, 1_700_000_000)
				RecordHTTPRequest("/leaderboard", "GET", "200", 0.003)
				RecordErrorByComponent("crm", "timeout")
				RecordErrorByEndpoint("/snapshots", "POST", "validation")
			}, ShouldNotPanic)
		})

		Convey("Then the shared registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
