package option

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before execution.
type QueryOption func(tx *gorm.DB) *gorm.DB

// Operator is a comparison operator usable in a Condition.
type Operator string

const (
	EQ   Operator = "="
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	IN   Operator = "IN"
	LIKE Operator = "LIKE"
)

// Condition expresses a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// QuerySortBy controls result ordering. Allow whitelists sortable columns so
// request input never reaches ORDER BY unchecked.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// ApplyOperator adds a WHERE clause built from the condition.
func ApplyOperator(c Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		switch c.Operator {
		case IN:
			return tx.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
		case EQ, GT, GTE, LT, LTE, LIKE:
			return tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		default:
			return tx
		}
	}
}

// WithSortBy orders results by the given column when whitelisted.
func WithSortBy(s QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		column := s.SortBy
		if column == "" {
			column = "created_at"
		}
		if s.Allow != nil && !s.Allow[column] {
			return tx
		}

		order := "ASC"
		if s.OrderBy == "desc" || s.OrderBy == "DESC" {
			order = "DESC"
		}
		return tx.Order(fmt.Sprintf("%s %s", column, order))
	}
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}

// WithLockingUpdate adds FOR UPDATE to the query. Only meaningful inside a
// transaction.
func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

// LockingUpdate is the scope form of WithLockingUpdate, for use with
// tx.Scopes so every query in the transaction takes row locks.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
