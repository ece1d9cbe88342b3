package models

import "time"

// Classroom is a schedulable room with a fixed capacity and equipment set.
type Classroom struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	Building   string    `db:"building" json:"building"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Equipment  string    `db:"equipment" json:"equipment"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EquipmentTokens returns the normalized available equipment tokens.
func (c *Classroom) EquipmentTokens() []string {
	return NormalizeEquipment(c.Equipment)
}

// Fits reports whether the room satisfies a course's capacity and equipment
// requirements, ignoring occupancy.
func (c *Classroom) Fits(course *Course) bool {
	if c.Capacity < course.MinCapacity {
		return false
	}
	return EquipmentSatisfied(course.EquipmentTokens(), c.EquipmentTokens())
}
