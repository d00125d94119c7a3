// Package models defines data structures shared by the ingestion pipeline.
package models

import (
	"time"
)

// RawRecord is a catalog record as decoded from the lookup response body.
type RawRecord map[string]any

// DatePrecision tells how much of a calendar date the source actually stated.
type DatePrecision int

const (
	PrecisionNone DatePrecision = iota
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

// BookRecord is one normalized catalog entry.
type BookRecord struct {
	ISBN             string              `json:"isbn"`
	Title            string              `json:"title"`
	Authors          []string            `json:"authors"`
	Publishers       []string            `json:"publishers"`
	PublishDateText  string              `json:"publish_date,omitempty"`
	PublishDate      *time.Time          `json:"publication_date,omitempty"`
	PublishPrecision DatePrecision       `json:"-"`
	NumberOfPages    *int                `json:"number_of_pages,omitempty"`
	Description      string              `json:"description,omitempty"`
	FirstSentence    string              `json:"first_sentence,omitempty"`
	Identifiers      map[string][]string `json:"identifiers,omitempty"`
	LastModified     *time.Time          `json:"last_modified,omitempty"`
}

// HasIdentifier reports whether the record carries a value for scheme.
func (b *BookRecord) HasIdentifier(scheme string) bool {
	values, ok := b.Identifiers[scheme]
	return ok && len(values) > 0
}
