// Package models contains the GORM persistence models of the finance tables.
// Domain aggregates carry no ORM tags; every model here has a ToDomain method
// and a FromDomain constructor that repositories use at the boundary.
//
// Amounts are stored as decimal(18,4) and calendar dates as date columns.
// Dates read back are normalized to midnight UTC.
package models
