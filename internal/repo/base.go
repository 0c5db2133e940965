// Package repo holds the gorm plumbing shared by the sheet repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base binds a shared gorm connection to request contexts.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection bound to ctx so cancellation reaches the driver.
func (b Base) DB(ctx context.Context) *gorm.DB {
	return b.conn.WithContext(ctx)
}

// Subquery returns an unbound session for building nested queries; it must be
// embedded in a context-bound statement to run.
func (b Base) Subquery() *gorm.DB {
	return b.conn.Session(&gorm.Session{NewDB: true})
}

// Transaction runs fn in a transaction bound to ctx.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return errors.New("transaction func required")
	}
	return b.DB(ctx).Transaction(fn)
}
