package domain

import "time"

type Lab struct {
	ID        int64
	Name      string
	Address   string
	City      string
	Rating    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DiagnosticTest struct {
	ID        int64
	Code      string
	Name      string
	Organ     string
	Price     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
