package health

import (
	"context"
	"errors"
)

// Pinger is implemented by storage backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks database connectivity.
type DatabaseChecker struct {
	name   string
	pinger Pinger
}

// NewDatabaseChecker creates a database health checker reported under name,
// typically the driver ("sqlite" or "postgres").
func NewDatabaseChecker(name string, p Pinger) *DatabaseChecker {
	if name == "" {
		name = "database"
	}
	return &DatabaseChecker{name: name, pinger: p}
}

// Name returns the checker name.
func (c *DatabaseChecker) Name() string {
	return c.name
}

// Check verifies the database answers a ping.
func (c *DatabaseChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return errors.New("database not initialized")
	}
	return c.pinger.Ping(ctx)
}

// FuncChecker adapts a function to a Checker.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncChecker creates a checker named name that calls check.
func NewFuncChecker(name string, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the checker name.
func (c *FuncChecker) Name() string {
	return c.name
}

// Check runs the wrapped function.
func (c *FuncChecker) Check(ctx context.Context) error {
	return c.check(ctx)
}
