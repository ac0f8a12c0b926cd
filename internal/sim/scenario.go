package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// Person is a simulated platform identity.
type Person struct {
	Label string
}

// Business is a simulated business context papers are scoped to.
type Business struct {
	ContextID string
	Label     string
}

// Grant describes one paper to file: who gets which document where, and
// for how long.
type Grant struct {
	PersonLabel       string
	PaperType         string
	BusinessContextID string
	ValidFor          time.Duration
}

// Probe is an access question to ask after grants have landed.
type Probe struct {
	PersonLabel       string
	Resource          string
	Action            string
	BusinessContextID string
}

// Scenario bundles the cast of a simulated franchise network.
type Scenario struct {
	Name       string
	People     []Person
	Businesses []Business
}

// FranchiseNetworkScenario models a small coffee franchise: one HQ, two
// locations, a handful of staff per location.
func FranchiseNetworkScenario() Scenario {
	return Scenario{
		Name: "FranchiseNetwork",
		People: []Person{
			{Label: "Aidana HQ Director"},
			{Label: "Bolat Location Owner"},
			{Label: "Carmen Shift Manager"},
			{Label: "Dmitry Supervisor"},
			{Label: "Elena Barista"},
			{Label: "Farhad Barista"},
			{Label: "Gulnara Applicant"},
		},
		Businesses: []Business{
			{ContextID: "biz-espresso-north", Label: "Espresso North"},
			{ContextID: "biz-espresso-south", Label: "Espresso South"},
		},
	}
}

var paperTypes = []string{
	"employment_contract",
	"authority_delegation",
	"supervisor_authority_delegation",
	"business_registration",
	"franchise_agreement",
}

var probeTemplates = []struct {
	resource string
	action   string
}{
	{"attendance", "create"},
	{"attendance", "read"},
	{"attendance", "approve"},
	{"schedule", "read"},
	{"schedule", "update"},
	{"report", "read"},
	{"paper", "validate"},
}

// Generator produces a random but plausible stream of paper grants and
// access probes over a fixed scenario.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
}

// NewGenerator seeds the generator; seed 0 means wall-clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: FranchiseNetworkScenario(), rnd: rand.New(rand.NewSource(seed))}
}

// Scenario returns the fixed cast.
func (g *Generator) Scenario() Scenario { return g.scenario }

// NextGrant picks a person, a paper type and a business context. The HQ
// registration is system-wide and carries no context.
func (g *Generator) NextGrant() Grant {
	person := g.scenario.People[g.rnd.Intn(len(g.scenario.People))]
	// One in twelve grants is the system-wide HQ registration.
	if g.rnd.Intn(12) == 0 {
		return Grant{
			PersonLabel: person.Label,
			PaperType:   "franchise_hq_registration",
			ValidFor:    time.Duration(180+g.rnd.Intn(180)) * 24 * time.Hour,
		}
	}
	biz := g.scenario.Businesses[g.rnd.Intn(len(g.scenario.Businesses))]
	return Grant{
		PersonLabel:       person.Label,
		PaperType:         paperTypes[g.rnd.Intn(len(paperTypes))],
		BusinessContextID: biz.ContextID,
		ValidFor:          time.Duration(30+g.rnd.Intn(335)) * 24 * time.Hour,
	}
}

// NextProbe asks a random access question within a random context.
func (g *Generator) NextProbe() Probe {
	person := g.scenario.People[g.rnd.Intn(len(g.scenario.People))]
	biz := g.scenario.Businesses[g.rnd.Intn(len(g.scenario.Businesses))]
	tpl := probeTemplates[g.rnd.Intn(len(probeTemplates))]
	return Probe{
		PersonLabel:       person.Label,
		Resource:          tpl.resource,
		Action:            tpl.action,
		BusinessContextID: biz.ContextID,
	}
}

// Describe renders a one-line summary of a grant for logs.
func (gr Grant) Describe() string {
	if gr.BusinessContextID == "" {
		return fmt.Sprintf("%s gets %s (system-wide)", gr.PersonLabel, gr.PaperType)
	}
	return fmt.Sprintf("%s gets %s at %s", gr.PersonLabel, gr.PaperType, gr.BusinessContextID)
}
