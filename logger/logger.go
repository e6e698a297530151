// Package logger provides adapters for popular logger libraries to work with
// veritree's Logger interface.
//
// The adapters allow you to use your existing logger without writing
// boilerplate. Note that the standard library's slog.Logger already
// implements veritree.Logger directly.
//
// Example with zap:
//
//	zapLogger, _ := zap.NewProduction()
//
//	tree, err := veritree.Open(db, veritree.WithLogger(logger.NewZap(zapLogger)))
//	if err != nil {
//	    panic(err)
//	}
//	defer tree.Close()
package logger
