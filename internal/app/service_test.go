package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/geocluster/internal/app"
	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/internal/domain/render"
	"github.com/okian/geocluster/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// beatRecords returns n records per beat code around distinct centers.
func beatRecords(n int, beats ...string) []record.Record {
	var out []record.Record
	for b, beat := range beats {
		for i := 0; i < n; i++ {
			out = append(out, record.Of(
				"latitude", fmt.Sprintf("%.4f", 40+float64(b)+0.01*float64(i%5)),
				"longitude", fmt.Sprintf("%.4f", -75+float64(b)+0.01*float64(i/5)),
				"beatcode", beat,
				"incident", fmt.Sprintf("%s-%d", beat, i),
			))
		}
	}
	return out
}

func waitForJob(svc *service.Service, id string) model.JobRecord {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := svc.Job(context.Background(), id)
		if err == nil && rec.Status.Terminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := svc.Job(context.Background(), id)
	return rec
}

func TestService_Cluster(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Get()))

		Convey("When clustering records with three beat codes", func() {
			resp, err := svc.Cluster(ctx, model.ClusterRequest{Records: beatRecords(10, "A", "B", "C")})

			Convey("Then every record is labeled and each cluster has a hull", func() {
				So(err, ShouldBeNil)
				So(resp.K, ShouldEqual, 3)
				So(resp.Records, ShouldHaveLength, 30)
				So(resp.Clusters, ShouldHaveLength, 3)
				for _, c := range resp.Clusters {
					So(c.Polygon, ShouldNotBeNil)
					So(c.Color, ShouldEqual, render.DefaultPalette().Color(c.Label))
				}
				So(resp.Diagnostics, ShouldNotBeNil)
				So(resp.Viewport.Empty, ShouldBeFalse)
			})
		})

		Convey("When rendering GeoJSON", func() {
			fc, err := svc.ClusterGeoJSON(ctx, model.ClusterRequest{Records: beatRecords(6, "A")})

			Convey("Then points and the single hull are features", func() {
				So(err, ShouldBeNil)
				So(fc.Features, ShouldHaveLength, 7)
			})
		})

		Convey("When a coordinate is malformed", func() {
			_, err := svc.Cluster(ctx, model.ClusterRequest{Records: []record.Record{
				record.Of("latitude", "abc", "longitude", "10"),
			}})
			So(errors.Is(err, record.ErrCoordinate), ShouldBeTrue)
		})

		Convey("When submitting a job", func() {
			_, err := svc.Submit(ctx, model.ClusterRequest{Records: beatRecords(1, "A")})
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a service with a record limit", t, func() {
		svc := service.New(service.WithMaxRecords(5))
		_, err := svc.Cluster(ctx, model.ClusterRequest{Records: beatRecords(6, "A")})
		So(errors.Is(err, model.ErrTooManyRecords), ShouldBeTrue)
		So(svc.GetStats()["runsFailed"], ShouldEqual, int64(1))
	})

	Convey("Given a service with a custom palette and zoom", t, func() {
		palette, err := render.NewPalette("#111111", "#222222")
		So(err, ShouldBeNil)
		svc := service.New(service.WithRenderOptions(render.WithPalette(palette), render.WithMaxZoom(10)))

		resp, err := svc.Cluster(ctx, model.ClusterRequest{
			Records: beatRecords(5, "A", "B", "C"),
			Params:  clustering.Params{Strategy: clustering.StrategyBeatCode},
		})
		So(err, ShouldBeNil)
		So(resp.Clusters[2].Color, ShouldEqual, "#111111")
		So(resp.Viewport.MaxZoom, ShouldEqual, 10)
		So(resp.Diagnostics, ShouldBeNil)
	})
}

func TestService_Jobs(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a job is submitted", func() {
			sub, err := svc.Submit(ctx, model.ClusterRequest{RequestID: "req-1", Records: beatRecords(5, "A", "B")})
			So(err, ShouldBeNil)
			So(sub.Duplicate, ShouldBeFalse)
			So(sub.JobID, ShouldNotBeEmpty)

			Convey("Then it completes with a result", func() {
				rec := waitForJob(svc, sub.JobID)
				So(rec.Status, ShouldEqual, model.JobDone)
				So(rec.Result, ShouldNotBeNil)
				So(rec.Result.K, ShouldEqual, 2)
				So(rec.RequestID, ShouldEqual, "req-1")
			})

			Convey("Then resubmitting the request id returns the same job", func() {
				again, err := svc.Submit(ctx, model.ClusterRequest{RequestID: "req-1", Records: beatRecords(1, "Z")})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.JobID, ShouldEqual, sub.JobID)
			})

			Convey("Then it is listed", func() {
				waitForJob(svc, sub.JobID)
				recs, err := svc.Jobs(ctx, model.JobDone, 10)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
			})
		})

		Convey("When a job has bad coordinates", func() {
			sub, err := svc.Submit(ctx, model.ClusterRequest{Records: []record.Record{
				record.Of("latitude", "north", "longitude", 1),
			}})
			So(err, ShouldBeNil)

			Convey("Then it fails with the coordinate error", func() {
				rec := waitForJob(svc, sub.JobID)
				So(rec.Status, ShouldEqual, model.JobFailed)
				So(rec.Error, ShouldContainSubstring, "invalid coordinates")
			})
		})

		Convey("When the parameters are invalid", func() {
			_, err := svc.Submit(ctx, model.ClusterRequest{
				Records: beatRecords(2, "A"),
				Params:  clustering.Params{Strategy: "nope"},
			})
			So(errors.Is(err, clustering.ErrInvalidParams), ShouldBeTrue)
		})

		Convey("When an unknown job is requested", func() {
			_, err := svc.Job(ctx, "missing")
			So(errors.Is(err, model.ErrJobNotFound), ShouldBeTrue)
		})

		Convey("Then stats report the running pool", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["paletteSize"], ShouldEqual, 30)
		})
	})

	Convey("Given a stopped service", t, func() {
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		svc.Stop()
		svc.Stop()

		So(svc.GetStats()["started"], ShouldBeFalse)
		_, err := svc.Submit(ctx, model.ClusterRequest{Records: beatRecords(1, "A")})
		So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
	})
}

func TestService_EvictedJobReleasesRequestID(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service that keeps a single job", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithResultCapacity(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		first, err := svc.Submit(ctx, model.ClusterRequest{RequestID: "req-a", Records: beatRecords(3, "A")})
		So(err, ShouldBeNil)
		So(waitForJob(svc, first.JobID).Status, ShouldEqual, model.JobDone)

		second, err := svc.Submit(ctx, model.ClusterRequest{RequestID: "req-b", Records: beatRecords(3, "B")})
		So(err, ShouldBeNil)
		So(waitForJob(svc, second.JobID).Status, ShouldEqual, model.JobDone)

		Convey("When the first job has been evicted", func() {
			_, err := svc.Job(ctx, first.JobID)
			So(errors.Is(err, model.ErrJobNotFound), ShouldBeTrue)

			Convey("Then resubmitting its request id creates a job that can be fetched", func() {
				again, err := svc.Submit(ctx, model.ClusterRequest{RequestID: "req-a", Records: beatRecords(3, "A")})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeFalse)
				So(again.JobID, ShouldNotEqual, first.JobID)

				rec := waitForJob(svc, again.JobID)
				So(rec.Status, ShouldEqual, model.JobDone)
				So(rec.RequestID, ShouldEqual, "req-a")
			})
		})
	})
}
