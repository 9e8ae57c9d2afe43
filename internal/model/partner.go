// internal/model/partner.go
package model

import "time"

type Partner struct {
	ID            int64      `db:"id" json:"id"`
	Phone         string     `db:"phone" json:"phone"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Company       string     `db:"company" json:"company"`
	RegionName    string     `db:"region_name" json:"region,omitempty"`
	TSDName       string     `db:"tsd_name" json:"tsd,omitempty"`
	Notes         string     `db:"notes" json:"notes"`
	OptedOut      bool       `db:"opted_out" json:"opted_out"`
	Pinned        bool       `db:"pinned" json:"pinned"`
	Archived      bool       `db:"archived" json:"archived"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastContacted *time.Time `db:"last_contacted" json:"last_contacted,omitempty"`
}

// FullName is "first last", or just the first name when there is no last name.
func (p *Partner) FullName() string {
	if p == nil {
		return ""
	}
	if p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return p.FirstName
}

// Active partners are the ones analytics and dispatch consider.
func (p *Partner) Active() bool {
	return p != nil && !p.Archived && !p.OptedOut
}
