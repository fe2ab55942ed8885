// Package api serves the chessinsight HTTP API in front of a UCI engine.
//
// Routes:
//
//	GET  /                  service banner
//	GET  /api/v1/health     liveness, independent of the engine
//	GET  /api/v1/ready      engine state; 503 unless the engine is ready
//	GET  /api/v1/stockfish  start position score as "<white> <black>" centipawns
//	POST /api/v1/analyse    evaluate a FEN position
//	GET  /openapi.json      the API description
//	GET  /metrics           Prometheus metrics
//
// Requests to described routes are validated against the embedded OpenAPI
// document before they reach a handler. Every response carries an
// X-Request-ID header and is logged once.
package api
