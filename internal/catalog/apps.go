/**
 * @description
 * This package serves the static marketing catalog: the applications on the
 * platform, the schools selectable at registration, and the level options
 * per role. The data is compiled in; it changes with releases, not at
 * runtime.
 */
package catalog

import "github.com/ndarama/ishuriai-backend/internal/domain"

// App is one application in the platform catalog. Free apps carry a version
// string; paid apps carry a monthly price and require the matching plan tier.
type App struct {
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Category    domain.PlanTier `json:"category"`
	Version     string          `json:"version,omitempty"`
	Price       string          `json:"price,omitempty"`
	Description string          `json:"description"`
	Action      string          `json:"action"`
}

const (
	priceStandard = "RWF 5,900/month"
	pricePremium  = "RWF 11,900/month"

	actionOpen    = "Open App"
	actionDetails = "View Details"
)

var apps = []App{
	{
		Slug:        "ishuri-calculator",
		Name:        "Ishuri Calculator",
		Category:    domain.PlanFree,
		Version:     "v1.0.0",
		Description: "Calculator for all your mathematical needs",
		Action:      actionOpen,
	},
	{
		Slug:        "ishuri-dictionary",
		Name:        "Ishuri Dictionary",
		Category:    domain.PlanFree,
		Version:     "v1.0.0",
		Description: "Comprehensive dictionary with Kinyarwanda translations",
		Action:      actionOpen,
	},
	{
		Slug:        "ishuri-formula",
		Name:        "Ishuri Formula",
		Category:    domain.PlanFree,
		Version:     "v1.0.0",
		Description: "Quick reference for all important formulas",
		Action:      actionOpen,
	},
	{
		Slug:        "ishuri-periodic-table",
		Name:        "Ishuri Periodic Table",
		Category:    domain.PlanFree,
		Version:     "v1.0.0",
		Description: "Interactive periodic table of elements",
		Action:      actionOpen,
	},
	{
		Slug:        "ishuri-ai-assistant",
		Name:        "Ishuri AI Assistant",
		Category:    domain.PlanStandard,
		Price:       priceStandard,
		Description: "AI-powered learning assistant for all subjects",
		Action:      actionDetails,
	},
	{
		Slug:        "ishuri-exams-prep-lite",
		Name:        "Ishuri ExamsPrep Lite",
		Category:    domain.PlanStandard,
		Price:       priceStandard,
		Description: "Basic exam preparation with practice questions",
		Action:      actionDetails,
	},
	{
		Slug:        "ishuri-traffic",
		Name:        "Ishuri Traffic",
		Category:    domain.PlanStandard,
		Price:       priceStandard,
		Description: "Track your learning progress and identify areas for improvement",
		Action:      actionDetails,
	},
	{
		Slug:        "ishuri-exams-prep-advance",
		Name:        "Ishuri ExamsPrep Advance",
		Category:    domain.PlanPremium,
		Price:       pricePremium,
		Description: "Comprehensive exam preparation with AI-generated questions",
		Action:      actionDetails,
	},
	{
		Slug:        "ishuri-problem-solver",
		Name:        "Ishuri Problem Solver",
		Category:    domain.PlanPremium,
		Price:       pricePremium,
		Description: "Advanced AI problem solver for complex questions",
		Action:      actionDetails,
	},
	{
		Slug:        "ishuri-stories",
		Name:        "Ishuri Stories",
		Category:    domain.PlanPremium,
		Price:       pricePremium,
		Description: "Create interactive educational stories and scenarios",
		Action:      actionDetails,
	},
}

// Apps returns the full application catalog.
func Apps() []App {
	out := make([]App, len(apps))
	copy(out, apps)
	return out
}

// AppsByCategory returns the apps on the given plan tier.
func AppsByCategory(tier domain.PlanTier) []App {
	var out []App
	for _, a := range apps {
		if a.Category == tier {
			out = append(out, a)
		}
	}
	return out
}

// AppBySlug looks up one app by its routing slug.
func AppBySlug(slug string) (App, bool) {
	for _, a := range apps {
		if a.Slug == slug {
			return a, true
		}
	}
	return App{}, false
}
