// Package catalog serves the static crisis and psychoeducation directory.
// It is read-only and never consulted by the scoring engine.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/mindbridge/internal/assessment"
)

//go:embed catalog.yaml
var defaultYAML []byte

type Line struct {
	Name   string `yaml:"name" json:"name"`
	Number string `yaml:"number" json:"number"`
	Hours  string `yaml:"hours" json:"hours"`
}

type Contact struct {
	Label string `yaml:"label" json:"label"`
	Phone string `yaml:"phone" json:"phone"`
}

type UniversityCentre struct {
	University  string    `yaml:"university" json:"university"`
	ShortName   string    `yaml:"short_name" json:"short_name"`
	Location    string    `yaml:"location" json:"location"`
	Centre      string    `yaml:"centre" json:"centre"`
	Description string    `yaml:"description" json:"description"`
	Contacts    []Contact `yaml:"contacts" json:"contacts"`
	Email       string    `yaml:"email,omitempty" json:"email,omitempty"`
	Website     string    `yaml:"website,omitempty" json:"website,omitempty"`
}

type Link struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
}

type Tip struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type Article struct {
	Title       string `yaml:"title" json:"title"`
	Category    string `yaml:"category" json:"category"`
	ReadMinutes int    `yaml:"read_minutes" json:"read_minutes"`
	Summary     string `yaml:"summary" json:"summary"`
}

type App struct {
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
}

// Catalog is the full resource directory.
type Catalog struct {
	EmergencyLines    []Line             `yaml:"emergency_lines" json:"emergency_lines"`
	MentalHealthLines []Line             `yaml:"mental_health_lines" json:"mental_health_lines"`
	Universities      []UniversityCentre `yaml:"university_centres" json:"university_centres"`
	OnlineResources   []Link             `yaml:"online_resources" json:"online_resources"`
	CopingTips        []Tip              `yaml:"coping_tips" json:"coping_tips"`
	ArticleCategories []string           `yaml:"article_categories" json:"article_categories"`
	Articles          []Article          `yaml:"articles" json:"articles"`
	SelfHelpTools     []Tip              `yaml:"self_help_tools" json:"self_help_tools"`
	Apps              []App              `yaml:"apps" json:"apps"`
}

// CrisisSupport is the subset of the catalog surfaced next to a result.
type CrisisSupport struct {
	Action            assessment.ActionSignal `json:"action"`
	Urgent            bool                    `json:"urgent"`
	EmergencyLines    []Line                  `json:"emergency_lines,omitempty"`
	MentalHealthLines []Line                  `json:"mental_health_lines,omitempty"`
	Universities      []UniversityCentre      `json:"university_centres,omitempty"`
	CopingTips        []Tip                   `json:"coping_tips,omitempty"`
	SelfHelpTools     []Tip                   `json:"self_help_tools,omitempty"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for package-level wiring; the embedded file is
// covered by tests.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and checks a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Check requires at least one emergency line and that every article uses a
// declared category.
func (c *Catalog) Check() error {
	if len(c.EmergencyLines) == 0 {
		return errors.New("catalog: no emergency lines")
	}
	for _, l := range append(append([]Line{}, c.EmergencyLines...), c.MentalHealthLines...) {
		if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.Number) == "" {
			return fmt.Errorf("catalog: line %q missing name or number", l.Name)
		}
	}
	cats := make(map[string]bool, len(c.ArticleCategories))
	for _, cat := range c.ArticleCategories {
		cats[cat] = true
	}
	for _, a := range c.Articles {
		if !cats[a.Category] {
			return fmt.Errorf("catalog: article %q has unknown category %q", a.Title, a.Category)
		}
	}
	return nil
}

// ArticlesIn filters articles by category; an empty category returns all.
func (c *Catalog) ArticlesIn(category string) []Article {
	if category == "" {
		return append([]Article(nil), c.Articles...)
	}
	var out []Article
	for _, a := range c.Articles {
		if strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	return out
}

// University looks up a centre by short name, case-insensitively.
func (c *Catalog) University(shortName string) (UniversityCentre, bool) {
	for _, u := range c.Universities {
		if strings.EqualFold(u.ShortName, shortName) {
			return u, true
		}
	}
	return UniversityCentre{}, false
}

// ForAction picks the resources to show for a recommended action. Urgent
// support leads with emergency numbers; counselling gets helplines and
// campus centres; self-help gets tips and tools only.
func (c *Catalog) ForAction(a assessment.ActionSignal) CrisisSupport {
	out := CrisisSupport{Action: a}
	switch a {
	case assessment.SuggestUrgentSupport:
		out.Urgent = true
		out.EmergencyLines = c.EmergencyLines
		out.MentalHealthLines = c.MentalHealthLines
		out.Universities = c.Universities
		out.CopingTips = c.CopingTips
	case assessment.SuggestCounseling:
		out.MentalHealthLines = c.MentalHealthLines
		out.Universities = c.Universities
		out.CopingTips = c.CopingTips
	case assessment.SuggestSelfHelp:
		out.CopingTips = c.CopingTips
		out.SelfHelpTools = c.SelfHelpTools
	}
	return out
}
