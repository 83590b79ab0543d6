package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/pkg/logger"
)

func seeded(ctx context.Context) *app.Service {
	svc := app.New(app.WithLogger(logger.Discard()), app.WithKnownTeams("A", "B", "Z"))
	p, err := svc.CreateProgram(ctx, app.ProgramInput{Name: "Song", Category: "junior", Gender: "girls"})
	convey.So(err, convey.ShouldBeNil)
	_, _, err = svc.SaveResult(ctx, p.ID, app.ResultInput{Slots: [model.SlotCount]model.Slot{
		{Team: "A", Score: "10"}, {Team: "B", Score: "5"}, {Team: "C", Score: "2"},
	}})
	convey.So(err, convey.ShouldBeNil)
	return svc
}

func TestRecompute(t *testing.T) {
	convey.Convey("Given a store with one result", t, func() {
		ctx := context.Background()
		svc := seeded(ctx)

		convey.Convey("When printing a table", func() {
			var buf bytes.Buffer
			convey.So(recompute(ctx, svc, &buf, false, false), convey.ShouldBeNil)

			convey.Convey("Then every team should be listed in rank order", func() {
				out := buf.String()
				convey.So(out, convey.ShouldStartWith, "written=4 skipped=0 failed=0\n")
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(bytes.Index(buf.Bytes(), []byte("A ")), convey.ShouldBeLessThan, bytes.Index(buf.Bytes(), []byte("Z ")))
			})
		})

		convey.Convey("When printing JSON", func() {
			var buf bytes.Buffer
			convey.So(recompute(ctx, svc, &buf, true, false), convey.ShouldBeNil)

			var got output
			convey.So(json.Unmarshal(buf.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Written, convey.ShouldEqual, 4)
			convey.So(got.Failed, convey.ShouldBeEmpty)
			convey.So(got.Leaderboard[0].Team, convey.ShouldEqual, "A")
			convey.So(got.Leaderboard[3].Team, convey.ShouldEqual, "Z")
		})

		convey.Convey("When running dry", func() {
			var buf bytes.Buffer
			convey.So(recompute(ctx, svc, &buf, true, true), convey.ShouldBeNil)

			var got output
			convey.So(json.Unmarshal(buf.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Written, convey.ShouldEqual, 0)
			convey.So(len(got.Leaderboard), convey.ShouldEqual, 4)
		})
	})
}
