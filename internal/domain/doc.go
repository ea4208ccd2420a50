// Package domain models GOES magnetometer readings and earthquake catalog
// entries, and the time-indexed tables built from them.
//
// # Data Sources
//
// Magnetometer readings come from the NOAA GOES one-minute magnetometer
// archive. Each file covers one calendar month for one satellite and starts
// with a free-form metadata header of variable length. The header ends at a
// line reading exactly "data:", after which a CSV body follows.
//
// Earthquake entries come from the USGS Centennial Catalog, converted from its
// fixed-width format into a single CSV file (centennial_Y2K.csv).
//
// # Conventions
//
// Magnetometer channels:
//
//	hp  field component perpendicular to the orbital plane (nT)
//	he  earthward component (nT)
//	hn  normal component (nT)
//	ht  total field magnitude (nT)
//
// Time format:
//
//	time_tag is "YYYY-MM-DD HH:MM:SS.000" in UTC, e.g. "2006-04-02 12:01:00.000".
//	Catalog rows split the timestamp into yr, mon, day, hr, min and sec columns.
//	Fractional seconds are truncated.
//
// Unknown values:
//
//	-99999.0 is the GOES sentinel for an invalid reading. Rows carrying it in any
//	channel are dropped during cleaning. Empty cells are kept as NaN and ignored
//	by aggregation.
//
// Catalog truncation:
//
//	Only earthquakes after 1985 are kept, matching the start of the
//	magnetometer archive.
//
// # Tables
//
// A [Table] is column-major: one shared UTC index and one float64 slice per
// column. Cleaning produces tables in file order; [IndexByTime] sorts them.
// [Resample] buckets a table to a fixed [Interval] and [Align] joins two
// tables over their common time span.
package domain
