// Package ctxlog provides structured logging with hierarchical context.
//
// Key features
//   - Log chaining: a Node collects fields for one unit of work; child nodes
//     branch off with New, inherit a copy of the parent's fields and are
//     folded into the parent's single canonical record when it is emitted
//   - Debug-only and error-only fields (DebugCtx, ErrorCtx)
//   - Error snapshots with the full cause chain (outermost -> root), the
//     operations chain of Station-Manager DetailedErrors and a stack trace
//   - A Dispatcher that fans records out to handlers with per-handler
//     thresholds, isolating handler failures from each other and the caller
//   - Console output (human or JSON lines, colors, stdout/stderr split) and
//     file output with size or daily rotation, retention and gzip/zip
//     compression (see package rotate)
//   - Graceful shutdown that waits for in-flight emits (bounded timeout)
//   - YAML/JSON configuration (LoadConfig, Config.Build)
//
// Typical usage
//
//	d := ctxlog.NewDispatcher(
//		ctxlog.WithLevel(ctxlog.LevelInfo),
//		ctxlog.WithHandlers(ctxlog.NewConsoleHandler(ctxlog.ConsoleOptions{})),
//	)
//	defer d.Close()
//
//	log := d.Logger("checkout").Ctx(ctxlog.String("order_id", id))
//	pay := log.New("payment").Str("provider", "acme")
//	if err := charge(); err != nil {
//		pay.Exc(err).Mark(ctxlog.LevelError, "charge failed")
//	}
//	log.Info("order processed")
//
// Nodes are owned by one goroutine; dispatchers and handlers are safe for
// concurrent use.
package ctxlog
