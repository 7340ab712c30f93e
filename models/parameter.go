package models

import "time"

// Parameter is a typed key/value row driving settlement and fee
// behavior. See the ParameterType* constants for the key semantics of
// each type. Rows are upserted by the parameters API and the holiday
// sync; the reconciliation never writes them.
type Parameter struct {
	Id          int    `gorm:"primaryKey" json:"id"`
	Type        string `gorm:"size:30;not null;uniqueIndex:idx_param_type_key,priority:1" json:"type"`
	Key         string `gorm:"size:100;not null;uniqueIndex:idx_param_type_key,priority:2" json:"key"`
	Value       string `gorm:"size:255;not null" json:"value"`
	Description string `gorm:"size:255" json:"description"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
