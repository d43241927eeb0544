// Package pkg provides the core libraries for flashplan partition layouts.
//
// # Overview
//
// Flashplan plans how a microcontroller's flash and RAM are split into
// partitions. Partitions and groups are placed into named memory regions,
// packed in order or pinned at fixed addresses, and checked for overlaps,
// overflow and bad containment. The pkg directory is organized into four
// main areas:
//
//  1. [size], [layout] - Domain logic (size text, regions, item forest, resolver, validator)
//  2. [catalog], [project], [pmstatic] - Inputs and outputs (device presets, project files, pm_static.yml)
//  3. [planner], [session] - Editing (mutation context, concurrent sessions)
//  4. [api], [render], [cache] - Delivery (HTTP API, memory maps, render cache)
//
// # Architecture
//
// The typical data flow through flashplan:
//
//	Catalog device + template, project file, or pm_static.yml
//	         ↓
//	    [planner] package (one edit, then one resolve and validate pass)
//	         ↓
//	    [layout] package (placement, findings, usage, export records)
//	         ↓
//	    pm_static.yml / memory map SVG / JSON session view
//
// # Quick Start
//
// Build a layout from a template and write it as pm_static.yml:
//
//	import (
//	    "os"
//	    "github.com/matzehuels/flashplan/pkg/catalog"
//	    "github.com/matzehuels/flashplan/pkg/planner"
//	    "github.com/matzehuels/flashplan/pkg/pmstatic"
//	)
//
//	pl, _ := planner.New(catalog.Builtin(), "nrf9160")
//	_ = pl.LoadTemplate("fota_external")
//	if !pl.Valid() {
//	    for _, f := range pl.Findings() {
//	        fmt.Println(f.Name, f.Messages)
//	    }
//	}
//	_ = pmstatic.Encode(os.Stdout, pl.Export())
//
// # Main Packages
//
// [size] - Size text parsing ("48K", "1.5M", "0x200") and display formats.
//
// [layout] - Region table, item forest, resolver, validator, usage, and the
// flat record form used for export and import.
//
// [planner] - The mutation context. Every edit either fails without
// changing anything or applies fully and resolves once.
//
// [catalog] - Device presets and layout templates, built in or read from
// TOML.
//
// [project] - TOML project files describing a device and its items.
//
// [pmstatic] - The pm_static.yml codec.
//
// [session] - In-memory planner sessions with idle expiry, for the API.
//
// [api] - The HTTP API (chi).
//
// [render] - Memory map rendering with Graphviz.
//
// [cache] - Content-addressed caches for rendered maps.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/layout/...   # Specific package
//	go test -run Example       # Examples only
//
// [size]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/size
// [layout]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/layout
// [planner]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/planner
// [catalog]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/catalog
// [project]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/project
// [pmstatic]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/pmstatic
// [session]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/session
// [api]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/api
// [render]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/flashplan/pkg/cache
package pkg
