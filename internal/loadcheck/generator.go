package loadcheck

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/okian/festboard/internal/domain/model"
)

// maxScore bounds generated slot scores.
const maxScore = 10

// plan is the data a run submits. Results for one program are listed in
// submission order; the last one is expected to count.
type plan struct {
	teams    []string
	programs []programPlan
}

type programPlan struct {
	name     string
	category model.Category
	gender   model.Gender
	results  [][model.SlotCount]model.Slot
}

// generate builds a reproducible plan. Team names carry prefix so a run can
// be verified against a board that already holds other data.
func generate(cfg *Config, prefix string) plan {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible test data

	p := plan{teams: make([]string, cfg.Teams)}
	for i := range p.teams {
		p.teams[i] = fmt.Sprintf("%s-team-%02d", prefix, i+1)
	}

	categories := model.Categories()
	genders := model.Genders()
	p.programs = make([]programPlan, cfg.Programs)
	for i := range p.programs {
		pp := programPlan{
			name:     fmt.Sprintf("%s program %d", prefix, i+1),
			category: categories[rng.Intn(len(categories))],
			gender:   genders[rng.Intn(len(genders))],
		}
		runs := 1
		if i < cfg.Rewrites {
			runs = 2
		}
		for range runs {
			pp.results = append(pp.results, randomSlots(rng, p.teams))
		}
		p.programs[i] = pp
	}
	return p
}

// randomSlots places up to three distinct teams. The first slot is always filled.
func randomSlots(rng *rand.Rand, teams []string) [model.SlotCount]model.Slot {
	var slots [model.SlotCount]model.Slot
	placed := min(model.SlotCount, len(teams), 1+rng.Intn(model.SlotCount))
	for i, idx := range rng.Perm(len(teams))[:placed] {
		slots[i] = model.Slot{Team: teams[idx], Score: strconv.Itoa(rng.Intn(maxScore + 1))}
	}
	return slots
}
