// Package api provides the REST client for the DFlow prediction markets
// metadata API.
//
// Endpoints:
//   - Production: https://prediction-markets-api.dflow.net/api/v1
//   - Development: https://dev-prediction-markets-api.dflow.net/api/v1
//
// Every call takes a context and returns decoded wire types. Transient
// failures (HTTP 429, 5xx, transport errors) are retried with capped
// exponential backoff; list endpoints expose All* variants that walk
// cursor pagination lazily.
package api
