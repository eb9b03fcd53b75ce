package models

import "gorm.io/gorm"

func init() {
	registerForAutomigration(&Setting{})
}

// Setting is a single persisted key/value pair, keyed uniquely so
// repeated writes update in place.
type Setting struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex"`
	Value string
}
