// Package layout resolves and validates microcontroller partition layouts.
//
// # Overview
//
// A layout is a [RegionTable] of named, bounded address ranges and a
// [Forest] of items placed into them. Items are either partitions (leaves
// with an authoritative size text) or groups, which own an ordered list of
// children and span exactly the bytes of those children.
//
// # Resolution
//
// [Resolve] runs two passes over the forest:
//
//  1. Size and region propagation, children before parents. Partition sizes
//     are parsed from their size text and, when alignment is requested,
//     rounded up to the flash page in flash-class regions. Group sizes are
//     the sum of their children.
//  2. Address assignment, independently per region. Root items are walked
//     in forest order behind a cursor that starts at the region base.
//     Pinned addresses are honored as-is; unpinned items take the cursor,
//     page aligned in flash-class regions. Groups lay their children out
//     back to back from their own address.
//
// The boot-loader pad partition (see [Options.PadName]) is exempt from
// both size and address alignment.
//
// # Validation
//
// [Validate] attaches human readable findings to items: duplicate root
// names, items outside their region and overlapping roots. Findings are
// plain strings in [Item.Errors]; they never stop resolution and never
// block [Export]. Overlaps between a group and the items it structurally
// contains are tolerated.
//
// # Edits
//
// [UnpinDownstream] implements the edit policy for committed size changes:
// roots after the edited item in the same region lose their pinned
// address and reflow, roots before it stay where they are.
//
// # Concurrency
//
// Nothing in this package is safe for concurrent mutation. [Resolve] and
// [Validate] are synchronous and keep no state between calls.
package layout
