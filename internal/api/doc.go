// Package api hosts the HTTP server, middleware, and handlers for the viewer.
// Notable routes:
//   - GET / renders the message page inside the application shell.
//   - GET /static/globals.css serves the shell's global stylesheet.
//   - /api/data proxies one call to the consumer service and wraps the body
//     in a {"message": ...} envelope. Any method is accepted.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
