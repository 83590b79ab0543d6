// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// Sentinel kinds for model parsing.
var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidGender   = errors.New("invalid gender")
)

// Category is the age bracket a program belongs to.
type Category string

// Known categories, in board display order.
const (
	CategorySubJunior   Category = "sub junior"
	CategoryJunior      Category = "junior"
	CategorySenior      Category = "senior"
	CategorySuperSenior Category = "super senior"
	CategoryGeneral     Category = "general"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategorySubJunior,
		CategoryJunior,
		CategorySenior,
		CategorySuperSenior,
		CategoryGeneral,
	}
}

// ParseCategory parses a category name case-insensitively.
// Hyphens and underscores are accepted in place of spaces ("sub-junior").
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	for _, c := range Categories() {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// NormalizeCategory is ParseCategory that folds unknown values into general.
func NormalizeCategory(s string) Category {
	c, err := ParseCategory(s)
	if err != nil {
		return CategoryGeneral
	}
	return c
}

// Gender is the division a program runs in.
type Gender string

// Divisions.
const (
	GenderBoys  Gender = "boys"
	GenderGirls Gender = "girls"
)

// Genders returns both divisions in board order.
func Genders() []Gender { return []Gender{GenderBoys, GenderGirls} }

// ParseGender parses a division name case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderBoys:
		return GenderBoys, nil
	case GenderGirls:
		return GenderGirls, nil
	}
	return "", ErrInvalidGender
}

// Team is a competing house. The name is its natural key.
type Team struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Program is one competition event that results are attached to.
type Program struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Gender    Gender    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotCount is the number of placings a result carries (1st, 2nd, 3rd).
const SlotCount = 3

// Slot is one placed team and its score as entered.
// Score is kept raw; the aggregation engine parses it.
type Slot struct {
	Team  string `json:"team"`
	Score string `json:"score"`
}

// Empty reports whether the slot names no team.
func (s Slot) Empty() bool { return strings.TrimSpace(s.Team) == "" }

// Result is the outcome of one program. Older results for the same program
// are kept as history; only the newest one counts.
type Result struct {
	ID        string          `json:"id"`
	ProgramID string          `json:"program_id"`
	Slots     [SlotCount]Slot `json:"slots"`
	CreatedAt time.Time       `json:"created_at"`
}

// TeamTotal is the materialised cumulative score for a team.
type TeamTotal struct {
	Team       string    `json:"team"`
	Total      int64     `json:"total"`
	Overridden bool      `json:"overridden"`
	UpdatedAt  time.Time `json:"updated_at"`
}
