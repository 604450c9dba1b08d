// Package befunge runs Befunge-93 programs.
//
// A program is a grid of single-character instructions. The instruction
// pointer starts at the top-left cell moving right and wraps around the
// edges of the grid; 'p' and 'g' read and rewrite the grid while it runs.
// Output produced by '.' and ',' is collected and returned once '@' is
// executed.
//
//	out, err := befunge.Run(ctx, `"!olleH",,,,,,@`, befunge.WithMaxSteps(1000))
//
// A Machine can also be driven one Step at a time, and paused with
// Snapshot and continued later with Restore.
package befunge
