// Package models contains the GORM models of the CRM tables. Domain types
// stay free of ORM tags; repositories convert between the two.
package models
