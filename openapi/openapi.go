// Package openapi embeds the OpenAPI document for the crew console API.
// The HTTP server serves it at GET /openapi.yaml.
package openapi

import _ "embed"

// Document contains the raw bytes of openapi.yaml, embedded at compile time
// so the served document always matches the running binary.
//
//go:embed openapi.yaml
var Document []byte
