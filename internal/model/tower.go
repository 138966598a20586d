package model

import "github.com/shopspring/decimal"

// FloorRiseType selects how a floor-rise rate turns into an amount.
type FloorRiseType string

const (
	// FloorRiseFixed charges rate × area.
	FloorRiseFixed FloorRiseType = "fixed"
	// FloorRisePercentage charges rate percent of the base price.
	FloorRisePercentage FloorRiseType = "percentage"
)

// FloorRise configures the floor-rise premium of a tower.  Floors below
// FloorStart carry no premium.
type FloorRise struct {
	Type       FloorRiseType   `json:"type"`
	Value      decimal.Decimal `json:"value"`
	FloorStart int             `json:"floorStart"`
}

// ViewPremium charges Percentage of the base price for units with View.
type ViewPremium struct {
	View       string          `json:"view"`
	Percentage decimal.Decimal `json:"percentage"`
}

// TowerPremiums is stored as JSON in towers.premiums.
type TowerPremiums struct {
	FloorRise   *FloorRise    `json:"floorRise"`
	ViewPremium []ViewPremium `json:"viewPremium"`
}

// Tower groups units of a project and carries their premium configuration.
type Tower struct {
	ID        uint64        `json:"id"`
	ProjectID uint64        `json:"projectId"`
	Name      string        `json:"name"`
	Premiums  TowerPremiums `json:"premiums"`
}

// ViewPercentage returns the configured percentage for view, or false when
// the tower has no premium for it.
func (t *Tower) ViewPercentage(view string) (decimal.Decimal, bool) {
	for _, vp := range t.Premiums.ViewPremium {
		if vp.View == view {
			return vp.Percentage, true
		}
	}
	return decimal.Zero, false
}
