//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// Provisioner rebuilds the warehouse tables from scratch.
type Provisioner struct {
	runner *Runner
	schema *warehouse.Schema
}

// NewProvisioner creates a provisioner for schema.
func NewProvisioner(runner *Runner, schema *warehouse.Schema) *Provisioner {
	return &Provisioner{runner: runner, schema: schema}
}

// DropAll drops every table, children before parents. Tables that do not
// exist are skipped.
func (p *Provisioner) DropAll(ctx context.Context) (*Report, error) {
	return p.runner.Run(ctx, p.schema.DropOrder(), IgnoreUndefinedTable)
}

// CreateAll creates every table, parents before children.
func (p *Provisioner) CreateAll(ctx context.Context) (*Report, error) {
	return p.runner.Run(ctx, p.schema.CreateOrder(), AbortOnError)
}

// Run drops and recreates the schema. All previously loaded data is lost.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	report, err := p.DropAll(ctx)
	if err != nil {
		return report, err
	}

	created, err := p.CreateAll(ctx)
	report.merge(created)
	return report, err
}
