package model_test

import (
	"testing"

	model "github.com/okian/festboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseCategory(t *testing.T) {
	convey.Convey("Given category names as typed by an admin", t, func() {
		convey.Convey("When the name matches a known category in any case", func() {
			c, err := model.ParseCategory("  Super Senior ")

			convey.Convey("Then it should parse to that category", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c, convey.ShouldEqual, model.CategorySuperSenior)
			})
		})

		convey.Convey("When separators are hyphens or underscores", func() {
			a, errA := model.ParseCategory("sub-junior")
			b, errB := model.ParseCategory("SUB_JUNIOR")

			convey.Convey("Then they should be treated as spaces", func() {
				convey.So(errA, convey.ShouldBeNil)
				convey.So(errB, convey.ShouldBeNil)
				convey.So(a, convey.ShouldEqual, model.CategorySubJunior)
				convey.So(b, convey.ShouldEqual, model.CategorySubJunior)
			})
		})

		convey.Convey("When the name is unknown", func() {
			_, err := model.ParseCategory("veterans")

			convey.Convey("Then it should fail with ErrInvalidCategory", func() {
				convey.So(err, convey.ShouldEqual, model.ErrInvalidCategory)
			})

			convey.Convey("And NormalizeCategory should fold it into general", func() {
				convey.So(model.NormalizeCategory("veterans"), convey.ShouldEqual, model.CategoryGeneral)
			})
		})

		convey.Convey("When listing categories", func() {
			convey.Convey("Then the display order should be fixed", func() {
				convey.So(model.Categories(), convey.ShouldResemble, []model.Category{
					"sub junior", "junior", "senior", "super senior", "general",
				})
			})
		})
	})
}

func TestParseGender(t *testing.T) {
	convey.Convey("Given division names", t, func() {
		g, err := model.ParseGender("Girls")
		convey.So(err, convey.ShouldBeNil)
		convey.So(g, convey.ShouldEqual, model.GenderGirls)

		_, err = model.ParseGender("mixed")
		convey.So(err, convey.ShouldEqual, model.ErrInvalidGender)
	})
}

func TestSlotEmpty(t *testing.T) {
	convey.Convey("Given result slots", t, func() {
		convey.So(model.Slot{}.Empty(), convey.ShouldBeTrue)
		convey.So(model.Slot{Team: "   ", Score: "5"}.Empty(), convey.ShouldBeTrue)
		convey.So(model.Slot{Team: "Kinana", Score: "5"}.Empty(), convey.ShouldBeFalse)
	})
}
