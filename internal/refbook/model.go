// Package refbook holds the core of the terminology service: reference books,
// their dated versions, version resolution and entry validation. Everything
// here is read-only; data enters through the seed tooling or an external
// administrative process.
package refbook

import "time"

// DateLayout is the wire format for all calendar dates (query params,
// responses, seed fixtures).
const DateLayout = "2006-01-02"

// Refbook is a named reference/code list.
type Refbook struct {
	ID          int64   `db:"id" json:"id"`
	Code        string  `db:"code" json:"code"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Version is a dated snapshot of a refbook's contents, effective from
// StartDate until superseded by a later-starting version. Labels are opaque:
// compared only for equality, never ordered.
type Version struct {
	ID        int64     `db:"id"`
	RefbookID int64     `db:"refbook_id"`
	Version   string    `db:"version"`
	StartDate time.Time `db:"start_date"`
}

// Element is one (code, value) pair within a version.
type Element struct {
	Code  string `db:"code" json:"code"`
	Value string `db:"value" json:"value"`
}

// Card is the detailed refbook view: the book itself plus its currently
// effective version, when one exists.
type Card struct {
	Refbook
	CurrentVersion          string `json:"current_version,omitempty"`
	CurrentVersionStartDate string `json:"current_version_start_date,omitempty"`
}
