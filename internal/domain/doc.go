// Package domain models temperature readings logged by a home automation
// shortcut and the analytics derived from them.
//
// # Data Source
//
// An iOS Shortcut samples a HomeKit temperature sensor on a schedule and
// appends one row per sample to a spreadsheet. Each row carries a time cell
// and a temperature cell; the spreadsheet is the only store and is never
// written by this module.
//
// # Conventions
//
// Time format:
//
//	Text cells in a fixed layout, "20060102 15:04:05" by default,
//	e.g. "20250101 13:30:00". Older sheets use "2006年01月02日 15:04".
//	Timestamps carry no zone; they are interpreted in the configured
//	location (the machine's local zone unless TIMEZONE is set).
//
// Temperature:
//
//	Degrees Celsius, either a numeric cell or a text cell such as "21.5°C".
//	The unit suffix is stripped before parsing. No range is enforced.
//
// Headers:
//
//	The header row sits within the first few rows of the table and names the
//	columns "时间" (time) and "温度" (temperature) in the original sheet.
//	A temperature header may carry a unit, e.g. "温度 (°C)", so aliases match
//	by containment as well as equality.
//
// # Validation
//
// A row whose time or temperature cell is empty or unparsable is skipped and
// reported as a [RowError]; it never aborts the load. A load that keeps no
// rows fails with [ErrEmptyDataset].
//
// # Slope
//
// Slope is the local rate of change in °C per hour. Interior points use a
// centred difference over both neighbours, end points a one-sided difference
// with their only neighbour. Elapsed time is measured as absolute duration,
// so a DST change inside a window does not distort the rate. A zero-length
// window yields no slope rather than an infinite one. See [DeriveSlopes].
package domain
