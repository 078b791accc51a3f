package model

import "github.com/google/uuid"

type Clinic struct {
	Base
	Name     string `db:"name" json:"name"`
	Address  string `db:"address" json:"address"`
	Phone    string `db:"phone" json:"phone"`
	Timezone string `db:"timezone" json:"timezone"`
	Status   string `db:"status" json:"status"`
}

type Provider struct {
	Base
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Specialty string    `db:"specialty" json:"specialty"`
	Status    string    `db:"status" json:"status"`
}
