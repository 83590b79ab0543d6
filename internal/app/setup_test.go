package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	repository "github.com/okian/festboard/internal/adapters/repository"
	service "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/config"
	"github.com/okian/festboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)
		cfg.KnownTeams = []string{"Khusayy", "Kinana"}
		cfg.OverridePolicy = config.PolicyOverrideSticky

		svc, err := service.FromConfig(ctx, cfg, logger.Get())
		So(err, ShouldBeNil)

		Convey("Then it should run on the memory store with the configured policy", func() {
			So(svc.Policy(), ShouldEqual, service.OverrideSticky)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			entries, err := svc.Leaderboard(ctx, 0)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
		})
	})

	Convey("Given a sqlite configuration", t, func() {
		cfg := config.New(ctx)
		cfg.Store = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "fest.db")

		store, err := service.OpenStore(ctx, cfg)

		Convey("Then a SQL store should be opened", func() {
			So(err, ShouldBeNil)
			_, ok := store.(*repository.BunStore)
			So(ok, ShouldBeTrue)
			So(store.Close(), ShouldBeNil)
		})
	})

	Convey("Given an unknown store", t, func() {
		cfg := config.New(ctx)
		cfg.Store = "redis"

		_, err := service.FromConfig(ctx, cfg, logger.Get())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
