package clustering_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/record"
)

func blobRecords(n int, centers ...[2]float64) ([]record.Record, []int) {
	rng := rand.New(rand.NewSource(11))
	var out []record.Record
	var truth []int
	for c, center := range centers {
		for i := 0; i < n; i++ {
			out = append(out, record.Of(
				"id", fmt.Sprintf("%d-%d", c, i),
				"Latitude", center[0]+rng.NormFloat64(),
				"Longitude", center[1]+rng.NormFloat64(),
			))
			truth = append(truth, c)
		}
	}
	return out, truth
}

func TestSelectK(t *testing.T) {
	Convey("SelectK clamps the group count to [1, n]", t, func() {
		So(clustering.SelectK(0, 10), ShouldEqual, 1)
		So(clustering.SelectK(4, 10), ShouldEqual, 4)
		So(clustering.SelectK(12, 10), ShouldEqual, 10)
		So(clustering.SelectK(3, 1), ShouldEqual, 1)
	})

	Convey("SelectKWithBudget bounds clusters by points per cluster", t, func() {
		// 100 points, 2 groups, at most 20 per cluster: 100/20=5 > 2 so min gives 2,
		// at least 10 per cluster gives 100/10 = 10.
		So(clustering.SelectKWithBudget(2, 100, 10, 20), ShouldEqual, 10)
		So(clustering.SelectKWithBudget(8, 100, 50, 20), ShouldEqual, 5)
		So(clustering.SelectKWithBudget(0, 3, 10, 10), ShouldEqual, 1)
	})

	Convey("Params.K prefers an explicit count", t, func() {
		So(clustering.Params{Clusters: 3}.K(0, 10), ShouldEqual, 3)
		So(clustering.Params{Clusters: 30}.K(0, 10), ShouldEqual, 10)
		So(clustering.Params{}.K(2, 10), ShouldEqual, 2)
	})
}

func TestParams_Validate(t *testing.T) {
	Convey("Given parameter sets", t, func() {
		So(clustering.Params{}.Validate(), ShouldBeNil)
		So(clustering.Params{MinPoints: 5}.Validate(), ShouldBeNil)
		So(errors.Is(clustering.Params{Clusters: -1}.Validate(), clustering.ErrInvalidParams), ShouldBeTrue)
		So(errors.Is(clustering.Params{MinPoints: -1, MaxPoints: 3}.Validate(), clustering.ErrInvalidParams), ShouldBeTrue)
		So(errors.Is(clustering.Params{Strategy: "dbscan"}.Validate(), clustering.ErrInvalidParams), ShouldBeTrue)

		s, err := clustering.ParseStrategy(" BeatCode ")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, clustering.StrategyBeatCode)
	})
}

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()
	engine := clustering.NewEngine()

	Convey("Given two records with distinct beat codes", t, func() {
		records := []record.Record{
			record.Of("latitude", "40.0", "longitude", "-70.0", "beatcode", "A"),
			record.Of("latitude", "41.0", "longitude", "-71.0", "beatcode", "B"),
		}
		res, err := engine.Run(ctx, records, clustering.Params{})

		So(err, ShouldBeNil)
		So(res.K, ShouldEqual, 2)
		So(res.Groups, ShouldEqual, 2)
		So(res.Labels[0], ShouldNotEqual, res.Labels[1])
		So(res.Model, ShouldNotBeNil)

		Convey("Each output record carries its label and the input is untouched", func() {
			for i, r := range res.Records {
				v, ok := r.Get(record.ClusterField)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, res.Labels[i])
			}
			_, ok := records[0].Get(record.ClusterField)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given group values differing only in case", t, func() {
		records := []record.Record{
			record.Of("latitude", 1.0, "longitude", 1.0, "Beat Code", "a1"),
			record.Of("latitude", 2.0, "longitude", 2.0, "Beat Code", "A1"),
			record.Of("latitude", 3.0, "longitude", 3.0, "Beat Code", "a1"),
		}
		res, err := engine.Run(ctx, records, clustering.Params{})

		Convey("They count as one group and fitting is skipped", func() {
			So(err, ShouldBeNil)
			So(res.K, ShouldEqual, 1)
			So(res.Model, ShouldBeNil)
			So(res.Labels, ShouldResemble, []int{0, 0, 0})
		})

		Convey("The raw value is kept in the output", func() {
			v, _ := res.Records[1].Get("Beat Code")
			So(v, ShouldEqual, "A1")
		})
	})

	Convey("Given a single record", t, func() {
		res, err := engine.Run(ctx, []record.Record{record.Of("latitude", 5, "longitude", 6)}, clustering.Params{Clusters: 4})
		So(err, ShouldBeNil)
		So(res.K, ShouldEqual, 1)
		So(res.Labels, ShouldResemble, []int{0})
	})

	Convey("Given three blobs without a group column", t, func() {
		records, truth := blobRecords(50, [2]float64{0, 0}, [2]float64{10, 10}, [2]float64{-10, 10})

		Convey("The group rule yields a single cluster", func() {
			res, err := engine.Run(ctx, records, clustering.Params{})
			So(err, ShouldBeNil)
			So(res.K, ShouldEqual, 1)
		})

		Convey("An explicit k of 3 recovers the blobs", func() {
			res, err := engine.Run(ctx, records, clustering.Params{Clusters: 3})
			So(err, ShouldBeNil)
			So(res.K, ShouldEqual, 3)

			counts := make(map[[2]int]int)
			for i := range truth {
				counts[[2]int{res.Labels[i], truth[i]}]++
			}
			matched := 0
			for l := 0; l < 3; l++ {
				best := 0
				for c := 0; c < 3; c++ {
					best = max(best, counts[[2]int{l, c}])
				}
				matched += best
			}
			So(float64(matched)/float64(len(truth)), ShouldBeGreaterThanOrEqualTo, 0.95)
			for _, l := range res.Labels {
				So(l, ShouldBeBetweenOrEqual, 0, 2)
			}
		})
	})

	Convey("Given the beat code strategy", t, func() {
		records := []record.Record{
			record.Of("latitude", 1, "longitude", 1, "beatcode", "B"),
			record.Of("latitude", 2, "longitude", 2, "beatcode", "A"),
			record.Of("latitude", 3, "longitude", 3, "beatcode", "b"),
		}
		res, err := engine.Run(ctx, records, clustering.Params{Strategy: clustering.StrategyBeatCode})
		So(err, ShouldBeNil)
		So(res.Labels, ShouldResemble, []int{0, 1, 0})
		So(res.K, ShouldEqual, 2)
		So(res.Model, ShouldBeNil)
	})

	Convey("Given malformed input", t, func() {
		_, err := engine.Run(ctx, []record.Record{record.Of("latitude", "abc", "longitude", "10")}, clustering.Params{})
		var coordErr *record.CoordinateError
		So(errors.As(err, &coordErr), ShouldBeTrue)
		So(errors.Is(err, record.ErrCoordinate), ShouldBeTrue)

		_, err = engine.Run(ctx, []record.Record{record.Of("lat", 1, "lng", 2)}, clustering.Params{})
		So(errors.Is(err, record.ErrSchema), ShouldBeTrue)

		_, err = engine.Run(ctx, nil, clustering.Params{})
		So(errors.Is(err, record.ErrEmpty), ShouldBeTrue)
	})
}
