package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/mixture"
	model "github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/internal/domain/render"
)

func TestClusterRequest(t *testing.T) {
	convey.Convey("Given a request body with inline parameters", t, func() {
		body := `{"request_id":"r-1","records":[{"latitude":1,"longitude":2,"name":"x"}],"clusters":3,"strategy":"beatcode"}`

		var req model.ClusterRequest
		err := json.Unmarshal([]byte(body), &req)

		convey.Convey("Then params and records decode in place", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(req.RequestID, convey.ShouldEqual, "r-1")
			convey.So(req.Clusters, convey.ShouldEqual, 3)
			convey.So(req.Strategy, convey.ShouldEqual, clustering.StrategyBeatCode)
			convey.So(req.Records, convey.ShouldHaveLength, 1)
			convey.So(req.Records[0].Keys(), convey.ShouldResemble, []string{"latitude", "longitude", "name"})
		})
	})
}

func TestNewClusterResponse(t *testing.T) {
	convey.Convey("Given a run without a model", t, func() {
		res := &clustering.Result{
			Records:  []record.Record{record.Of("latitude", 1, "longitude", 1, "cluster", 0)},
			K:        1,
			Strategy: clustering.StrategyMixture,
			Duration: 1500 * time.Microsecond,
		}
		out := model.NewClusterResponse(res, render.Payload{})

		convey.So(out.Diagnostics, convey.ShouldBeNil)
		convey.So(out.DurationMS, convey.ShouldEqual, 1.5)
		convey.So(out.K, convey.ShouldEqual, 1)
	})

	convey.Convey("Given a run with a fitted model", t, func() {
		res := &clustering.Result{K: 2, Model: &mixture.Model{Iterations: 7, Converged: true, Reseeds: 1}}
		out := model.NewClusterResponse(res, render.Payload{})

		convey.So(out.Diagnostics, convey.ShouldNotBeNil)
		convey.So(out.Diagnostics.Iterations, convey.ShouldEqual, 7)
		convey.So(out.Diagnostics.Converged, convey.ShouldBeTrue)
		convey.So(out.Diagnostics.Reseeds, convey.ShouldEqual, 1)
	})
}

func TestJobStatus(t *testing.T) {
	convey.Convey("Only done and failed are terminal", t, func() {
		convey.So(model.JobPending.Terminal(), convey.ShouldBeFalse)
		convey.So(model.JobRunning.Terminal(), convey.ShouldBeFalse)
		convey.So(model.JobDone.Terminal(), convey.ShouldBeTrue)
		convey.So(model.JobFailed.Terminal(), convey.ShouldBeTrue)
	})
}
