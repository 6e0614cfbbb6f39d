// Package server runs an http.Server with graceful shutdown.
//
//	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx, app.Handler())()
package server
