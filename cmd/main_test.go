package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	app "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/config"
	"github.com/okian/festboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("FEST_ADDR", ":8080")
			_ = os.Setenv("FEST_BOARD_PAGE_SIZE", "6")
			defer func() {
				_ = os.Unsetenv("FEST_ADDR")
				_ = os.Unsetenv("FEST_BOARD_PAGE_SIZE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BoardPageSize, convey.ShouldEqual, 6)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler built from configuration", t, func() {
		ctx := context.Background()
		hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
		convey.So(err, convey.ShouldBeNil)

		cfg := config.New(ctx)
		cfg.AdminPasswordHash = string(hash)
		cfg.JWTSecret = "festboard-test-secret-0123456789ab"
		cfg.KnownTeams = []string{"A", "B"}

		svc, err := app.FromConfig(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, cfg, svc)

		serve := func(method, path, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then docs and API routes should both be served", func() {
			convey.So(serve(http.MethodGet, "/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/healthz", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then known teams should be on the leaderboard at zero", func() {
			w := serve(http.MethodGet, "/leaderboard", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"team":"A","total":0`)
		})

		convey.Convey("Then the configured admin should be able to log in", func() {
			w := serve(http.MethodPost, "/auth/login", `{"username":"admin","password":"pw"}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "access_token")
		})
	})
}
