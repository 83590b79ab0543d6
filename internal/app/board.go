package service

import (
	"context"

	"github.com/okian/festboard/internal/domain/model"
	"github.com/okian/festboard/internal/domain/scoring"
)

// BoardItem is a program shown on the display board with its counting result.
type BoardItem struct {
	Program model.Program `json:"program"`
	Result  model.Result  `json:"result"`
}

// Slide is one page of the display board.
type Slide struct {
	Gender   model.Gender   `json:"gender"`
	Category model.Category `json:"category"`
	Page     int            `json:"page"`
	Items    []BoardItem    `json:"items"`
}

// RotationStep is one (gender, category) position of the board carousel.
type RotationStep struct {
	Gender   model.Gender   `json:"gender"`
	Category model.Category `json:"category"`
}

// Stats is the dashboard summary.
type Stats struct {
	Programs         int                  `json:"programs"`
	ProgramsByGender map[model.Gender]int `json:"programs_by_gender"`
	Results          int                  `json:"results"`
	Teams            int                  `json:"teams"`
	Leading          string               `json:"leading"`
	LeadingTotal     int64                `json:"leading_total"`
}

// NoLeader is reported by Stats when no team has a total yet.
const NoLeader = "None"

// Board groups a division's decided programs by category, in display order,
// and pages them. Categories without results produce no slide.
func (s *Service) Board(ctx context.Context, gender string) ([]Slide, error) {
	g, err := model.ParseGender(gender)
	if err != nil {
		return nil, invalid("gender %q", gender)
	}

	items, err := s.Programs(ctx, ProgramQuery{Gender: string(g)})
	if err != nil {
		return nil, err
	}
	latest, err := s.latestByProgram(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[model.Category][]BoardItem)
	// Programs come newest first; the board reads oldest first.
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if !it.HasResult {
			continue
		}
		cat := model.NormalizeCategory(string(it.Category))
		byCategory[cat] = append(byCategory[cat], BoardItem{Program: it.Program, Result: latest[it.ID]})
	}

	var slides []Slide
	for _, cat := range model.Categories() {
		list := byCategory[cat]
		for page := 0; len(list) > 0; page++ {
			n := min(s.boardPageSize, len(list))
			slides = append(slides, Slide{Gender: g, Category: cat, Page: page + 1, Items: list[:n]})
			list = list[n:]
		}
	}
	return slides, nil
}

// Rotation returns the carousel order: each category shows boys then girls.
func (s *Service) Rotation() []RotationStep {
	steps := make([]RotationStep, 0, len(model.Categories())*len(model.Genders()))
	for _, cat := range model.Categories() {
		for _, g := range model.Genders() {
			steps = append(steps, RotationStep{Gender: g, Category: cat})
		}
	}
	return steps
}

// Stats summarises programs, results and the leading team.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, storageErr("count", err)
	}
	entries, err := s.Leaderboard(ctx, 1)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		ProgramsByGender: make(map[model.Gender]int, len(model.Genders())),
		Results:          counts.Results,
		Teams:            counts.Teams,
		Leading:          NoLeader,
	}
	for _, g := range model.Genders() {
		st.ProgramsByGender[g] = counts.ProgramsByGender[g]
		st.Programs += counts.ProgramsByGender[g]
	}
	if lead, ok := scoring.Leading(entries); ok {
		st.Leading = lead.Team
		st.LeadingTotal = lead.Total
	}
	return st, nil
}
