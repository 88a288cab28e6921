//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package version provides build and version information for pgedge-dwh.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name reported in version output and to the database.
const Name = "pgedge-dwh"

// Build information set at compile time via ldflags.
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns formatted version information.
func Info() string {
	return fmt.Sprintf(
		"%s %s (commit: %s, built: %s, go: %s)",
		Name, Version, Commit, BuildDate, runtime.Version(),
	)
}

// ApplicationName is the application_name connections identify with, so
// pipeline sessions can be told apart in the cluster's system tables.
func ApplicationName() string {
	return Name + "/" + Version
}
