// Package fileserver serves a directory over HTTP with byte-range support.
//
// It backs the serve command and the end-to-end tests of the seekable
// handles. Middleware can require Basic auth or hide range support so that
// clients see a server that always answers with the full content.
//
//	app := fileserver.New(os.DirFS("."),
//		fileserver.WithMiddleware(fileserver.Logger(log), fileserver.Errors(log), fileserver.Panics()),
//	)
//	srv := fileserver.NewServer(app, fileserver.WithHost(":8080"))
//	err := srv.Run(ctx)
package fileserver
