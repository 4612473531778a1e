// Package api provides OpenAPI documentation for the TeamFlow API.
//
// # API Overview
//
// TeamFlow provides a RESTful API for:
//   - Hierarchy definition management (teams of workers under a root coordinator)
//   - Run lifecycle: start, inspect, list, cancel
//   - Run progress streaming over SSE and WebSocket
//   - Call statistics and formatted call logs per run
//   - Health monitoring and metrics
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Endpoints
//
//	POST   /api/v1/hierarchies            create a hierarchy definition
//	GET    /api/v1/hierarchies            list definitions
//	GET    /api/v1/hierarchies/{id}       get one definition
//	PUT    /api/v1/hierarchies/{id}       replace a definition
//	DELETE /api/v1/hierarchies/{id}       delete a definition
//	POST   /api/v1/hierarchies/{id}/runs  start a run
//	GET    /api/v1/runs                   list runs
//	GET    /api/v1/runs/{id}              get run status
//	POST   /api/v1/runs/{id}/cancel       cancel a run
//	GET    /api/v1/runs/{id}/events       SSE progress stream
//	GET    /api/v1/runs/{id}/ws           WebSocket progress stream
//	GET    /api/v1/runs/{id}/statistics   call statistics
//	GET    /api/v1/runs/{id}/calls        formatted call log
package api
