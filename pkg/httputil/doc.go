// Package httputil provides the JSON envelope, request parsing and generic
// middleware shared by Quill's HTTP handlers.
//
// Every error body has the form
//
//	{"success": false, "error": "<message>"}
//
// and authorization failures add "currentRole". Successful responses that
// carry data use {"success": true, "data": ...}.
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
