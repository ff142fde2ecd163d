// Package extract pulls tabular records out of a decoded workbook whose
// layout is only partly known in advance.
//
// # Flow
//
// For every configured sheet, in configured order, the [Parser]:
//
//  1. resolves the logical sheet name to a workbook sheet (exact, then
//     trimmed case-insensitive match);
//  2. locates the header row, either by matching an expected column list
//     ([Targeted]) or by looking for a header-like row followed by data
//     ([Generic]);
//  3. turns every following row with at least one non-empty value into a
//     [Record];
//  4. when nothing was extracted, classifies the sheet as genuinely empty or
//     as present-but-unparseable.
//
// # Findings are data
//
// A missing sheet or an unparseable table is not a Go error. Both are
// reported in [ParsingErrorReport] so the caller can decide what to tell the
// user. Parse always completes. The only failure in the whole flow happens
// earlier, when bytes are decoded into a workbook (see package workbook).
//
// Parse is pure: it performs no I/O, never mutates the workbook, and returns
// freshly allocated results, so concurrent parses of independent workbooks
// need no coordination.
package extract
