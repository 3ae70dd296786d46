package catalog

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"

	"flavoriz-backend-go/internal/models"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type sampleRecipe struct {
	models.RecipeDetail `yaml:",inline"`
	// Thumbnail is the listing image when it differs from the detail image.
	Thumbnail string `yaml:"thumbnail"`
}

func (r sampleRecipe) summary() models.Recipe {
	s := r.Summary()
	if r.Thumbnail != "" {
		s.Image = r.Thumbnail
	}
	return s
}

// SampleSet is the built-in catalog used when the remote API cannot answer.
type SampleSet struct {
	Recipes      []sampleRecipe           `yaml:"recipes"`
	CuratedPlans []models.CuratedPlan     `yaml:"curatedPlans"`
	PlanMeals    map[string][]models.Meal `yaml:"planMeals"`
}

var samples = mustLoadSamples()

func mustLoadSamples() *SampleSet {
	var s SampleSet
	if err := yaml.Unmarshal(fallbackYAML, &s); err != nil {
		panic(fmt.Sprintf("catalog: invalid embedded sample set: %v", err))
	}
	return &s
}

// Samples returns the built-in sample set.
func Samples() *SampleSet { return samples }

// RecipeNotFound is the placeholder detail returned for unknown recipe ids.
func RecipeNotFound(id string) models.RecipeDetail {
	return models.RecipeDetail{
		ID:           id,
		Title:        "Recipe Not Found",
		Image:        models.PlaceholderImage,
		Category:     "Unknown",
		Duration:     "N/A",
		Ingredients:  []string{"Recipe not available"},
		Instructions: []string{"This recipe could not be found."},
	}
}

// MealNotFound is the placeholder listing returned for unknown curated plans.
func MealNotFound() []models.Meal {
	return []models.Meal{{
		ID:       "meal1",
		Title:    "Meal Not Found",
		Image:    models.PlaceholderImage,
		Duration: "N/A",
		RecipeID: "r1",
	}}
}

// curatedTitles names the curated plans when nothing else is reachable.
var curatedTitles = map[string]string{
	"m1": "Healthy Week Plan",
	"m2": "Quick & Easy Meals",
	"m3": "Family Favorites",
}

// CuratedTitle returns the fixed title of a curated plan id.
func CuratedTitle(planID string) (string, bool) {
	t, ok := curatedTitles[planID]
	return t, ok
}

func (s *SampleSet) all() []models.Recipe {
	out := make([]models.Recipe, 0, len(s.Recipes))
	for _, r := range s.Recipes {
		out = append(out, r.summary())
	}
	return out
}

func (s *SampleSet) search(term string) []models.Recipe {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return s.all()
	}
	out := []models.Recipe{}
	for _, r := range s.Recipes {
		if strings.Contains(strings.ToLower(r.Title), term) || strings.Contains(strings.ToLower(r.Category), term) {
			out = append(out, r.summary())
		}
	}
	return out
}

func (s *SampleSet) byCategory(category string) []models.Recipe {
	out := []models.Recipe{}
	for _, r := range s.Recipes {
		if strings.EqualFold(r.Category, category) {
			out = append(out, r.summary())
		}
	}
	return out
}

func (s *SampleSet) categories() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range s.Recipes {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

func (s *SampleSet) random(n int) []models.Recipe {
	all := s.all()
	if n <= 0 {
		return []models.Recipe{}
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]models.Recipe, 0, n)
	for _, i := range rand.Perm(len(all))[:n] {
		out = append(out, all[i])
	}
	return out
}

func (s *SampleSet) detail(id string) models.RecipeDetail {
	for _, r := range s.Recipes {
		if r.ID == id {
			d := r.RecipeDetail
			d.Ingredients = append([]string(nil), d.Ingredients...)
			d.Instructions = append([]string(nil), d.Instructions...)
			return d
		}
	}
	return RecipeNotFound(id)
}

func (s *SampleSet) curated() []models.CuratedPlan {
	return append([]models.CuratedPlan(nil), s.CuratedPlans...)
}

func (s *SampleSet) meals(planID string) []models.Meal {
	if meals, ok := s.PlanMeals[planID]; ok {
		return append([]models.Meal(nil), meals...)
	}
	return MealNotFound()
}

// HasPlan reports whether planID is one of the built-in curated plans.
func (s *SampleSet) HasPlan(planID string) bool {
	_, ok := s.PlanMeals[planID]
	return ok
}

// Meals returns the sample meals of a curated plan, or the not-found placeholder.
func (s *SampleSet) Meals(planID string) []models.Meal { return s.meals(planID) }
