package db

import "time"

// ServiceRow represents a row in the services table.
type ServiceRow struct {
	Name        string    `json:"name"`
	BaseURL     string    `json:"base_url"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// ConversionRow represents a row in the conversions table. Service is empty for
// chained conversions.
type ConversionRow struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Service     string    `json:"service"`
	Method      string    `json:"method"`
	Args        string    `json:"args"`
	Body        string    `json:"body"`
	Via         []string  `json:"via"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}
