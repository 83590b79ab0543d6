package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

const benchTeams = 2000

func seededStore(b *testing.B) (*TreapStore, []string) {
	b.Helper()
	ctx := context.Background()
	s := NewTreapStore()
	teams := make([]string, benchTeams)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic benchmark data
	for i := range teams {
		teams[i] = fmt.Sprintf("team-%04d", i)
		if err := s.UpsertTeamTotal(ctx, total(teams[i], rng.Int63n(500)), UpsertOverwrite); err != nil {
			b.Fatalf("seed: %v", err)
		}
	}
	return s, teams
}

func BenchmarkTreapStore_Upsert(b *testing.B) {
	ctx := context.Background()
	s, teams := seededStore(b)
	rng := rand.New(rand.NewSource(2)) //nolint:gosec // deterministic benchmark data
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		team := teams[i%len(teams)]
		if err := s.UpsertTeamTotal(ctx, total(team, rng.Int63n(500)), UpsertOverwrite); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreapStore_Rank(b *testing.B) {
	ctx := context.Background()
	s, teams := seededStore(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Rank(ctx, teams[i%len(teams)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreapStore_TopN(b *testing.B) {
	ctx := context.Background()
	s, _ := seededStore(b)
	for _, n := range []int{10, 100, benchTeams} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := s.TopN(ctx, n); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTreapStore_ParallelMixed(b *testing.B) {
	ctx := context.Background()
	s, teams := seededStore(b)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			team := teams[i%len(teams)]
			switch i % 4 {
			case 0:
				_ = s.UpsertTeamTotal(ctx, total(team, int64(i%500)), UpsertKeepOverride)
			case 1:
				_, _ = s.TopN(ctx, 10)
			default:
				_, _ = s.Rank(ctx, team)
			}
			i++
		}
	})
}
