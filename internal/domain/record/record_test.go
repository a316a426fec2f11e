package record_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/geocluster/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecord_JSON(t *testing.T) {
	Convey("Given a JSON object with mixed field order", t, func() {
		raw := []byte(`{"Zone":"north","Latitude":"40.5","longitude":-70.25,"Beat Code":"A1","note":null}`)

		Convey("When decoding it into a record", func() {
			var r record.Record
			err := json.Unmarshal(raw, &r)

			Convey("Then key order and values are preserved", func() {
				So(err, ShouldBeNil)
				So(r.Keys(), ShouldResemble, []string{"Zone", "Latitude", "longitude", "Beat Code", "note"})
				v, ok := r.Get("longitude")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, -70.25)
			})

			Convey("And re-encoding keeps the same order", func() {
				out, err := json.Marshal(r)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `{"Zone":"north","Latitude":"40.5","longitude":-70.25,"Beat Code":"A1","note":null}`)
			})
		})
	})

	Convey("Given a record labeled with a cluster", t, func() {
		r := record.Of("latitude", "1", "longitude", "2", "cluster", 9, "name", "x")
		labeled := r.WithCluster(3)

		Convey("Then the cluster field is overwritten in place and the original is untouched", func() {
			So(labeled.Keys(), ShouldResemble, []string{"latitude", "longitude", "cluster", "name"})
			v, _ := labeled.Get(record.ClusterField)
			So(v, ShouldEqual, 3)
			orig, _ := r.Get(record.ClusterField)
			So(orig, ShouldEqual, 9)
		})

		Convey("And a record without a cluster field gains one at the end", func() {
			plain := record.Of("latitude", "1", "longitude", "2").WithCluster(0)
			So(plain.Keys(), ShouldResemble, []string{"latitude", "longitude", "cluster"})
		})
	})

	Convey("Given a zero-value record", t, func() {
		var r record.Record

		Convey("Then reads are safe and it encodes as an empty object", func() {
			So(r.Len(), ShouldEqual, 0)
			So(r.Keys(), ShouldBeEmpty)
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "{}")
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given records with case-varied column names", t, func() {
		records := []record.Record{
			record.Of("LATITUDE", "40", "Longitude", "-70", "Beat Code", "A"),
		}

		Convey("When resolving columns", func() {
			cols, err := record.Resolve(records)

			Convey("Then the original key names are returned", func() {
				So(err, ShouldBeNil)
				So(cols.Latitude, ShouldEqual, "LATITUDE")
				So(cols.Longitude, ShouldEqual, "Longitude")
				So(cols.HasGroup, ShouldBeTrue)
				So(cols.Group, ShouldEqual, "Beat Code")
			})
		})
	})

	Convey("Given records with a beatcode column spelled without a space", t, func() {
		cols, err := record.Resolve([]record.Record{record.Of("latitude", 1, "longitude", 2, "BeatCode", "x")})

		Convey("Then the group column is found", func() {
			So(err, ShouldBeNil)
			So(cols.Group, ShouldEqual, "BeatCode")
		})
	})

	Convey("Given records without a group column", t, func() {
		cols, err := record.Resolve([]record.Record{record.Of("latitude", 1, "longitude", 2)})

		Convey("Then the group is absent", func() {
			So(err, ShouldBeNil)
			So(cols.HasGroup, ShouldBeFalse)
			So(record.GroupValue(record.Of("latitude", 1), cols), ShouldEqual, "")
		})
	})

	Convey("Given records missing a longitude column", t, func() {
		_, err := record.Resolve([]record.Record{record.Of("latitude", 1, "lon", 2)})

		Convey("Then a schema error is returned", func() {
			So(errors.Is(err, record.ErrSchema), ShouldBeTrue)
		})
	})

	Convey("Given only the first record carries the columns", t, func() {
		records := []record.Record{
			record.Of("name", "a"),
			record.Of("latitude", 1, "longitude", 2),
		}
		_, err := record.Resolve(records)

		Convey("Then resolution fails because only the first record is inspected", func() {
			So(errors.Is(err, record.ErrSchema), ShouldBeTrue)
		})
	})

	Convey("Given no records", t, func() {
		_, err := record.Resolve(nil)

		Convey("Then ErrEmpty is returned", func() {
			So(errors.Is(err, record.ErrEmpty), ShouldBeTrue)
		})
	})
}

func TestPoints(t *testing.T) {
	cols := record.Columns{Latitude: "latitude", Longitude: "longitude"}

	Convey("Given valid string and numeric coordinates", t, func() {
		records := []record.Record{
			record.Of("latitude", " 40.0 ", "longitude", "-70.0"),
			record.Of("latitude", 41.5, "longitude", json.Number("-71")),
			record.Of("latitude", 3, "longitude", int64(4)),
		}

		Convey("Then every record yields a point", func() {
			pts, err := record.Points(records, cols)
			So(err, ShouldBeNil)
			So(pts, ShouldResemble, []record.Point{{Lat: 40, Lng: -70}, {Lat: 41.5, Lng: -71}, {Lat: 3, Lng: 4}})
		})
	})

	Convey("Given a malformed latitude in the batch", t, func() {
		records := []record.Record{
			record.Of("latitude", "1", "longitude", "1"),
			record.Of("latitude", "abc", "longitude", "10"),
		}

		Convey("Then the whole batch fails with a coordinate error", func() {
			pts, err := record.Points(records, cols)
			So(pts, ShouldBeNil)
			So(errors.Is(err, record.ErrCoordinate), ShouldBeTrue)

			var ce *record.CoordinateError
			So(errors.As(err, &ce), ShouldBeTrue)
			So(ce.Row, ShouldEqual, 1)
			So(ce.Field, ShouldEqual, "latitude")
		})
	})

	Convey("Given non-finite or missing values", t, func() {
		Convey("Then they are rejected", func() {
			for _, v := range []any{"NaN", "Inf", math.Inf(1), nil, "", true} {
				_, ok := record.ParseCoordinate(v)
				So(ok, ShouldBeFalse)
			}
		})
	})
}

func TestPopupFields(t *testing.T) {
	Convey("Given a labeled record with empty and missing values", t, func() {
		r := record.Of(
			"Name", "Station 4",
			"Latitude", "40",
			"LONGITUDE", "-70",
			"beat", "",
			"cluster", 2,
			"officers", 3.0,
			"notes", nil,
		)

		Convey("When formatting popup fields", func() {
			fields := record.PopupFields(r)

			Convey("Then coordinates and cluster are excluded and blanks render as Unknown", func() {
				So(fields, ShouldResemble, []record.Field{
					{Name: "Name", Value: "Station 4"},
					{Name: "beat", Value: record.UnknownValue},
					{Name: "officers", Value: "3"},
					{Name: "notes", Value: record.UnknownValue},
				})
			})
		})
	})
}
