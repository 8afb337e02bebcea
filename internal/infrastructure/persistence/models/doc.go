// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of ORM
// concerns. Each model exposes ToDomain and FromDomain mappers; list-valued fields are
// stored as JSON text columns.
package models
