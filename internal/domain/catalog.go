package domain

// Questionnaire shape. Every pillar has four sub-themes, each scored from
// five items rated 0-5.
const (
	SubthemesPerPillar = 4
	ItemsPerSubtheme   = 5
	MaxItemRating      = 5
	MaxSubthemeScore   = ItemsPerSubtheme * MaxItemRating
	MaxPillarScore     = SubthemesPerPillar * MaxSubthemeScore

	MinRank     = 1
	MaxRank     = SubthemesPerPillar
	NeutralRank = 2
)

// PillarKey identifies one of the four fixed life pillars.
type PillarKey string

const (
	Wealth PillarKey = "wealth"
	Health PillarKey = "health"
	Self   PillarKey = "self"
	Social PillarKey = "social"
)

// PillarSpec describes how a pillar is presented when the submission does
// not override it.
type PillarSpec struct {
	Key       PillarKey
	Label     string
	Colour    string
	Subthemes [SubthemesPerPillar]string
}

// Catalog is the fixed, ordered set of pillars. It is a value type; callers
// receive copies and cannot mutate the shared definition.
type Catalog struct {
	pillars [4]PillarSpec
}

// DefaultCatalog returns the pillars in report order.
func DefaultCatalog() Catalog {
	return Catalog{pillars: [4]PillarSpec{
		{
			Key:       Wealth,
			Label:     "Wealth",
			Colour:    "#FFD700",
			Subthemes: [4]string{"Income & Earnings", "Savings & Investments", "Career Growth", "Financial Security"},
		},
		{
			Key:       Health,
			Label:     "Health",
			Colour:    "#5CB85C",
			Subthemes: [4]string{"Fitness & Movement", "Nutrition", "Sleep & Recovery", "Mental Wellbeing"},
		},
		{
			Key:       Self,
			Label:     "Self",
			Colour:    "#5BC0DE",
			Subthemes: [4]string{"Purpose & Meaning", "Learning & Growth", "Mindset", "Rest & Play"},
		},
		{
			Key:       Social,
			Label:     "Social",
			Colour:    "#9B59B6",
			Subthemes: [4]string{"Family", "Friendships", "Partner & Intimacy", "Community"},
		},
	}}
}

// Pillars returns the pillar definitions in report order.
func (c Catalog) Pillars() [4]PillarSpec { return c.pillars }

// Keys returns the pillar keys in report order.
func (c Catalog) Keys() [4]PillarKey {
	var keys [4]PillarKey
	for i, p := range c.pillars {
		keys[i] = p.Key
	}
	return keys
}

// Lookup finds a pillar by key.
func (c Catalog) Lookup(key PillarKey) (PillarSpec, bool) {
	for _, p := range c.pillars {
		if p.Key == key {
			return p, true
		}
	}
	return PillarSpec{}, false
}

// Colour returns the pillar's colour, or a neutral grey for unknown keys.
func (c Catalog) Colour(key PillarKey) string {
	if p, ok := c.Lookup(key); ok {
		return p.Colour
	}
	return "#999999"
}
