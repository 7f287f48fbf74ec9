// Package models holds the GORM rows behind the order, payment and inventory
// aggregates. Domain types carry no ORM tags; models convert with ToDomain
// and FromDomain.
//
// Status history rows live in one table per order type; repositories pick it
// with StatusHistoryTable.
package models
