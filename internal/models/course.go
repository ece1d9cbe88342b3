package models

import "time"

// Course is a unit of teaching that must be scheduled PeriodsPerWeek times
// per week for every group that carries it.
type Course struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Name              string    `db:"name" json:"name"`
	Department        string    `db:"department" json:"department"`
	PeriodsPerWeek    int       `db:"periods_per_week" json:"periods_per_week"`
	MinCapacity       int       `db:"min_capacity" json:"min_capacity"`
	RequiredEquipment string    `db:"required_equipment" json:"required_equipment"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// EquipmentTokens returns the normalized required equipment tokens.
func (c *Course) EquipmentTokens() []string {
	return NormalizeEquipment(c.RequiredEquipment)
}
