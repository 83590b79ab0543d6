package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/festboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.OverridePolicy, convey.ShouldEqual, config.PolicyRecomputeWins)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.BoardPageSize, convey.ShouldEqual, 9)
			convey.So(cfg.TokenTTL, convey.ShouldEqual, 12*time.Hour)
			convey.So(cfg.AdminEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the store is postgres without a database url", func() {
			cfg.Store = "Postgres"
			err := cfg.Validate()

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the override policy is unknown", func() {
			cfg.OverridePolicy = "admin_always"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a password hash is set without a jwt secret", func() {
			cfg.AdminPasswordHash = "$2a$10$abc"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the jwt secret is too short", func() {
			cfg.AdminPasswordHash = "$2a$10$abc"
			cfg.JWTSecret = "short"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, config.ErrWeakSecret), convey.ShouldBeTrue)

			cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When known teams contain blanks and padding", func() {
			cfg.KnownTeams = []string{" Kinana ", "", "Khusayy"}
			convey.So(cfg.Validate(), convey.ShouldBeNil)

			convey.Convey("Then they should be trimmed and blanks dropped", func() {
				convey.So(cfg.KnownTeams, convey.ShouldResemble, []string{"Kinana", "Khusayy"})
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
