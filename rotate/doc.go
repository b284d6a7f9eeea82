// Package rotate manages the lifecycle of an append-only log file: when to roll
// it, how rolled files are named, compressed and pruned.
//
// Two engines implement [Rotator]:
//
//   - [Manager]: the builtin engine. Size trigger (SizeBytes or Size) or a daily
//     HH:MM boundary, sequence-suffixed backups (app.log.000001), gzip or zip
//     compression and a strict retention bound (Keep).
//   - [NewLumberjack]: size-only rotation delegated to lumberjack, for callers
//     that want age based pruning (MaxAgeDays).
//
// When both a size and a time trigger are configured the size trigger wins and
// the time trigger is ignored.
//
// Rotation is synchronous. A failed step (rename, compression, pruning) is
// reported as an [*Error] through the OnError option and never leaves the
// active file unwritable; a failed compression keeps the uncompressed backup.
//
// Backups live next to the active file:
//
//	app.log           active file
//	app.log.000002.gz newest backup
//	app.log.000001.gz oldest backup
package rotate
