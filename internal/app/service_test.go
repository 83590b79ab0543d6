package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	repository "github.com/okian/festboard/internal/adapters/repository"
	service "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/types"
	"github.com/okian/festboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeClock advances one second on every read so results get distinct timestamps.
type fakeClock struct {
	n atomic.Int64
}

func (c *fakeClock) Now() time.Time {
	return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(c.n.Add(1)) * time.Second)
}

func sequentialIDs() func() (string, error) {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("id-%04d", n.Add(1)), nil
	}
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	clock := &fakeClock{}
	base := []service.Option{
		service.WithStore(store),
		service.WithLogger(logger.Get()),
		service.WithClock(clock.Now),
		service.WithIDGenerator(sequentialIDs()),
	}
	return service.New(append(base, opts...)...)
}

func result(team1, score1, team2, score2, team3, score3 string) service.ResultInput {
	return service.ResultInput{Slots: [model.SlotCount]model.Slot{
		{Team: team1, Score: score1},
		{Team: team2, Score: score2},
		{Team: team3, Score: score3},
	}}
}

func mustProgram(ctx context.Context, svc *service.Service, name, category, gender string) model.Program {
	p, err := svc.CreateProgram(ctx, service.ProgramInput{Name: name, Category: category, Gender: gender})
	So(err, ShouldBeNil)
	return p
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Policy(), ShouldEqual, service.RecomputeWins)
		})

		Convey("And leaderboard reads should work on the default store", func() {
			entries, err := svc.Leaderboard(context.Background(), 10)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})

	Convey("Given an unknown override policy", t, func() {
		svc := service.New(service.WithOverridePolicy("admin_always"))

		Convey("Then the default should be kept", func() {
			So(svc.Policy(), ShouldEqual, service.RecomputeWins)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with known teams", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore()
		svc := newService(store, service.WithKnownTeams("Kinana", "Khusayy"))
		defer svc.Stop()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then known teams should be registered with a zero total", func() {
				teams, err := svc.Teams(ctx)
				So(err, ShouldBeNil)
				So(len(teams), ShouldEqual, 2)

				entries, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(entries, ShouldResemble, []types.Entry{
					{Rank: 1, Team: "Khusayy", Total: 0},
					{Rank: 1, Team: "Kinana", Total: 0},
				})
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Aggregation(t *testing.T) {
	Convey("Given programs with results for teams A, B and C", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore(), service.WithKnownTeams("A", "B"))
		So(svc.Start(ctx), ShouldBeNil)

		p1 := mustProgram(ctx, svc, "Speech", "senior", "boys")
		p2 := mustProgram(ctx, svc, "Song", "junior", "girls")

		_, _, err := svc.SaveResult(ctx, p1.ID, result("A", "10", "B", "5", "", ""))
		So(err, ShouldBeNil)
		_, report, err := svc.SaveResult(ctx, p2.ID, result("A", "3", "", "", "C", "2"))
		So(err, ShouldBeNil)
		So(report.Written, ShouldEqual, 3)

		Convey("Then the leaderboard should be A, B, C", func() {
			entries, err := svc.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(entries, ShouldResemble, []types.Entry{
				{Rank: 1, Team: "A", Total: 13},
				{Rank: 2, Team: "B", Total: 5},
				{Rank: 3, Team: "C", Total: 2},
			})
		})

		Convey("Then live standings should agree with persisted totals", func() {
			standings, err := svc.Standings(ctx)
			So(err, ShouldBeNil)
			persisted, _ := svc.Leaderboard(ctx, 0)
			So(standings, ShouldResemble, persisted)
		})

		Convey("When a newer result replaces the first program's", func() {
			_, _, err := svc.SaveResult(ctx, p1.ID, result("B", "9", "", "", "", ""))
			So(err, ShouldBeNil)

			Convey("Then only the newer result should count", func() {
				latest, err := svc.LatestResult(ctx, p1.ID)
				So(err, ShouldBeNil)
				So(latest.Slots[0].Team, ShouldEqual, "B")

				totals, err := svc.RecomputeTotals(ctx)
				So(err, ShouldBeNil)
				So(totals, ShouldResemble, map[string]int64{"A": 3, "B": 9, "C": 2})

				entry, err := svc.Rank(ctx, "B")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When the administrator overrides A to 50", func() {
			So(svc.ManualOverride(ctx, "A", "50"), ShouldBeNil)
			entry, err := svc.Rank(ctx, "A")
			So(err, ShouldBeNil)
			So(entry.Total, ShouldEqual, 50)

			Convey("Then a recompute should restore the computed total", func() {
				_, err := svc.Recompute(ctx)
				So(err, ShouldBeNil)
				entry, err := svc.Rank(ctx, "A")
				So(err, ShouldBeNil)
				So(entry.Total, ShouldEqual, 13)
			})
		})

		Convey("When the override input is invalid", func() {
			for _, tc := range []struct{ team, raw string }{
				{"A", ""},
				{"A", "fifty"},
				{"A", "-5"},
				{"  ", "5"},
			} {
				err := svc.ManualOverride(ctx, tc.team, tc.raw)
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			}

			Convey("Then the stored total should be unchanged", func() {
				entry, err := svc.Rank(ctx, "A")
				So(err, ShouldBeNil)
				So(entry.Total, ShouldEqual, 13)
			})
		})

		Convey("When ranking a team without a total", func() {
			_, err := svc.Rank(ctx, "Nobody")

			Convey("Then it should be not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			st, err := svc.Stats(ctx)
			So(err, ShouldBeNil)

			Convey("Then they should count both divisions and name the leader", func() {
				So(st.Programs, ShouldEqual, 2)
				So(st.ProgramsByGender[model.GenderBoys], ShouldEqual, 1)
				So(st.Results, ShouldEqual, 2)
				So(st.Leading, ShouldEqual, "A")
				So(st.LeadingTotal, ShouldEqual, 13)
			})
		})
	})
}

func TestService_StickyOverride(t *testing.T) {
	Convey("Given a service where overrides are sticky", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore(), service.WithOverridePolicy(service.OverrideSticky))
		p := mustProgram(ctx, svc, "Quiz", "general", "boys")
		_, _, err := svc.SaveResult(ctx, p.ID, result("A", "7", "B", "4", "", ""))
		So(err, ShouldBeNil)

		So(svc.ManualOverride(ctx, "A", "50"), ShouldBeNil)

		Convey("When recomputing", func() {
			report, err := svc.Recompute(ctx)
			So(err, ShouldBeNil)

			Convey("Then the override should survive and be reported as skipped", func() {
				So(report.Skipped, ShouldEqual, 1)
				So(report.Written, ShouldEqual, 1)
				entry, _ := svc.Rank(ctx, "A")
				So(entry.Total, ShouldEqual, 50)
			})

			Convey("And clearing the override should restore the computed total", func() {
				So(svc.ClearOverride(ctx, "A"), ShouldBeNil)
				entry, _ := svc.Rank(ctx, "A")
				So(entry.Total, ShouldEqual, 7)

				report, err := svc.Recompute(ctx)
				So(err, ShouldBeNil)
				So(report.Skipped, ShouldEqual, 0)
			})
		})

		Convey("When clearing an override for an unknown team", func() {
			err := svc.ClearOverride(ctx, "Ghost")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_SaveResultValidation(t *testing.T) {
	Convey("Given a program", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore())
		p := mustProgram(ctx, svc, "Essay", "sub-junior", "GIRLS")

		Convey("Then its category and gender should be normalised", func() {
			So(p.Category, ShouldEqual, model.CategorySubJunior)
			So(p.Gender, ShouldEqual, model.GenderGirls)
		})

		Convey("When saving malformed results", func() {
			cases := []service.ResultInput{
				result("", "", "B", "3", "", ""),
				result("A", "abc", "", "", "", ""),
				result("A", "-1", "", "", "", ""),
				result("A", "5", "A", "3", "", ""),
				result("A", "5", "", "3", "", ""),
				result("A", "1000001", "", "", "", ""),
				result("A", "9223372036854775807", "", "", "", ""),
			}
			for _, in := range cases {
				_, _, err := svc.SaveResult(ctx, p.ID, in)
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			}

			Convey("Then nothing should be stored", func() {
				_, err := svc.LatestResult(ctx, p.ID)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When saving the largest allowed score in two programs", func() {
			other := mustProgram(ctx, svc, "Poem", "junior", "girls")
			_, _, err := svc.SaveResult(ctx, p.ID, result("A", "1000000", "", "", "", ""))
			So(err, ShouldBeNil)
			_, _, err = svc.SaveResult(ctx, other.ID, result("A", "1000000", "", "", "", ""))
			So(err, ShouldBeNil)

			Convey("Then the total should add up and be written", func() {
				entry, err := svc.Rank(ctx, "A")
				So(err, ShouldBeNil)
				So(entry.Total, ShouldEqual, 2000000)
			})
		})

		Convey("When saving for a missing program", func() {
			_, _, err := svc.SaveResult(ctx, "missing", result("A", "1", "", "", "", ""))
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("When creating an invalid program", func() {
			_, err := svc.CreateProgram(ctx, service.ProgramInput{Name: " ", Category: "junior", Gender: "boys"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			_, err = svc.CreateProgram(ctx, service.ProgramInput{Name: "Quiz", Category: "toddler", Gender: "boys"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			_, err = svc.CreateProgram(ctx, service.ProgramInput{Name: "Quiz", Category: "junior", Gender: "mixed"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When updating the program", func() {
			updated, err := svc.UpdateProgram(ctx, p.ID, service.ProgramInput{Name: "Essay (Arabic)", Category: "senior", Gender: "girls"})
			So(err, ShouldBeNil)
			So(updated.CreatedAt, ShouldEqual, p.CreatedAt)
			So(updated.Category, ShouldEqual, model.CategorySenior)

			_, err = svc.UpdateProgram(ctx, "missing", service.ProgramInput{Name: "x", Category: "senior", Gender: "girls"})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given strict team checking", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore(), service.WithStrictTeams(true), service.WithKnownTeams("A"))
		p := mustProgram(ctx, svc, "Quiz", "junior", "boys")
		_, err := svc.RegisterTeam(ctx, "B")
		So(err, ShouldBeNil)

		Convey("Then registered and known teams should be accepted", func() {
			_, _, err := svc.SaveResult(ctx, p.ID, result("A", "5", "B", "3", "", ""))
			So(err, ShouldBeNil)
		})

		Convey("Then an unregistered team should be rejected", func() {
			_, _, err := svc.SaveResult(ctx, p.ID, result("A", "5", "Z", "3", "", ""))
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then a blank team name should not register", func() {
			_, err := svc.RegisterTeam(ctx, "  ")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_RegisterTeamShowsOnLeaderboard(t *testing.T) {
	Convey("Given a team that already scored before it was registered", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore(), service.WithOverridePolicy(service.OverrideSticky))
		p := mustProgram(ctx, svc, "Quiz", "junior", "boys")
		_, _, err := svc.SaveResult(ctx, p.ID, result("A", "4", "", "", "", ""))
		So(err, ShouldBeNil)

		Convey("When a new team is registered", func() {
			_, err := svc.RegisterTeam(ctx, "Kinana")
			So(err, ShouldBeNil)

			Convey("Then it should be ranked with zero without a recompute", func() {
				entries, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(entries, ShouldResemble, []types.Entry{
					{Rank: 1, Team: "A", Total: 4},
					{Rank: 2, Team: "Kinana", Total: 0},
				})
			})
		})

		Convey("When a team with an override is registered", func() {
			So(svc.ManualOverride(ctx, "A", "40"), ShouldBeNil)
			_, err := svc.RegisterTeam(ctx, "A")
			So(err, ShouldBeNil)

			Convey("Then its stored total should be kept", func() {
				entry, err := svc.Rank(ctx, "A")
				So(err, ShouldBeNil)
				So(entry.Total, ShouldEqual, 40)
			})
		})
	})
}

func TestService_ConcurrentReconcile(t *testing.T) {
	Convey("Given two concurrent reconciles of the same new team", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore()
		svc := newService(store)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, v := range []int64{5, 7} {
			wg.Add(1)
			go func(i int, v int64) {
				defer wg.Done()
				errs[i] = svc.Reconcile(ctx, "NewTeam", v)
			}(i, v)
		}
		wg.Wait()

		Convey("Then exactly one row should exist with one of the values", func() {
			So(errs[0], ShouldBeNil)
			So(errs[1], ShouldBeNil)
			rows, err := store.ListTeamTotals(ctx)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Total, ShouldBeIn, []int64{5, 7})
		})
	})
}

// flakyStore fails selected operations.
type flakyStore struct {
	repository.Store
	failUpsertFor string
	failResults   bool
}

var errDown = errors.New("connection refused")

func (f *flakyStore) UpsertTeamTotal(ctx context.Context, t model.TeamTotal, mode repository.UpsertMode) error {
	if t.Team == f.failUpsertFor {
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, errDown)
	}
	return f.Store.UpsertTeamTotal(ctx, t, mode)
}

func (f *flakyStore) ListResults(ctx context.Context) ([]model.Result, error) {
	if f.failResults {
		return nil, fmt.Errorf("%w: %w", repository.ErrUnavailable, errDown)
	}
	return f.Store.ListResults(ctx)
}

func TestService_StorageFailures(t *testing.T) {
	Convey("Given a store that fails writes for team B", t, func() {
		ctx := context.Background()
		inner := repository.NewTreapStore()
		store := &flakyStore{Store: inner, failUpsertFor: "B"}
		svc := newService(store)
		p := mustProgram(ctx, svc, "Speech", "senior", "boys")

		_, report, err := svc.SaveResult(ctx, p.ID, result("A", "10", "B", "5", "C", "2"))

		Convey("Then the result should still be saved", func() {
			So(errors.Is(err, service.ErrStorageUnavailable), ShouldBeTrue)
			latest, lerr := svc.LatestResult(ctx, p.ID)
			So(lerr, ShouldBeNil)
			So(latest.Slots[0].Team, ShouldEqual, "A")
		})

		Convey("Then only B should fail and the others should be written", func() {
			So(report.Written, ShouldEqual, 2)
			So(report.FailedTeams(), ShouldResemble, []string{"B"})
			So(errors.Is(report.Failed["B"], service.ErrStorageUnavailable), ShouldBeTrue)

			rows, _ := inner.ListTeamTotals(ctx)
			So(len(rows), ShouldEqual, 2)
		})
	})

	Convey("Given a store that cannot list results", t, func() {
		ctx := context.Background()
		inner := repository.NewTreapStore()
		svc := newService(&flakyStore{Store: inner, failResults: true})

		report, err := svc.Recompute(ctx)

		Convey("Then recompute should fail without writing", func() {
			So(errors.Is(err, service.ErrStorageUnavailable), ShouldBeTrue)
			So(report.Written, ShouldEqual, 0)
			rows, _ := inner.ListTeamTotals(ctx)
			So(rows, ShouldBeEmpty)
		})

		Convey("Then standings should report the same failure", func() {
			_, err := svc.Standings(ctx)
			So(errors.Is(err, service.ErrStorageUnavailable), ShouldBeTrue)
		})
	})
}

func TestService_Board(t *testing.T) {
	Convey("Given decided and undecided programs", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewTreapStore(), service.WithBoardPageSize(2))

		var decided []model.Program
		for i := 0; i < 3; i++ {
			p := mustProgram(ctx, svc, fmt.Sprintf("Junior %d", i), "junior", "boys")
			_, _, err := svc.SaveResult(ctx, p.ID, result("A", "1", "", "", "", ""))
			So(err, ShouldBeNil)
			decided = append(decided, p)
		}
		mustProgram(ctx, svc, "Undecided", "junior", "boys")
		senior := mustProgram(ctx, svc, "Senior", "senior", "boys")
		_, _, err := svc.SaveResult(ctx, senior.ID, result("B", "2", "", "", "", ""))
		So(err, ShouldBeNil)
		girls := mustProgram(ctx, svc, "Girls", "junior", "girls")
		_, _, err = svc.SaveResult(ctx, girls.ID, result("B", "2", "", "", "", ""))
		So(err, ShouldBeNil)

		Convey("When building the boys board", func() {
			slides, err := svc.Board(ctx, "boys")
			So(err, ShouldBeNil)

			Convey("Then decided programs should be paged per category in order", func() {
				So(len(slides), ShouldEqual, 3)
				So(slides[0].Category, ShouldEqual, model.CategoryJunior)
				So(slides[0].Page, ShouldEqual, 1)
				So(len(slides[0].Items), ShouldEqual, 2)
				So(slides[0].Items[0].Program.ID, ShouldEqual, decided[0].ID)
				So(slides[1].Page, ShouldEqual, 2)
				So(len(slides[1].Items), ShouldEqual, 1)
				So(slides[2].Category, ShouldEqual, model.CategorySenior)
				So(slides[2].Items[0].Result.Slots[0].Team, ShouldEqual, "B")
			})
		})

		Convey("When listing programs", func() {
			items, err := svc.Programs(ctx, service.ProgramQuery{Gender: "boys", Category: "junior"})
			So(err, ShouldBeNil)

			Convey("Then undecided programs should be flagged", func() {
				So(len(items), ShouldEqual, 4)
				So(items[0].Name, ShouldEqual, "Undecided")
				So(items[0].HasResult, ShouldBeFalse)
				So(items[1].HasResult, ShouldBeTrue)
			})

			_, err = svc.Programs(ctx, service.ProgramQuery{Gender: "mixed"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When asking for an unknown division", func() {
			_, err := svc.Board(ctx, "mixed")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given the board rotation", t, func() {
		steps := service.New().Rotation()

		Convey("Then each category should show boys then girls", func() {
			So(len(steps), ShouldEqual, 10)
			So(steps[0], ShouldResemble, service.RotationStep{Gender: model.GenderBoys, Category: model.CategorySubJunior})
			So(steps[1], ShouldResemble, service.RotationStep{Gender: model.GenderGirls, Category: model.CategorySubJunior})
			So(steps[9].Category, ShouldEqual, model.CategoryGeneral)
		})
	})

	Convey("Given an empty store", t, func() {
		st, err := service.New().Stats(context.Background())

		Convey("Then stats should report no leader", func() {
			So(err, ShouldBeNil)
			So(st.Leading, ShouldEqual, service.NoLeader)
			So(st.Programs, ShouldEqual, 0)
		})
	})
}
