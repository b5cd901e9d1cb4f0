// Package api embeds the HTTP API description served by chat-server.
package api

import _ "embed"

// Spec is the OpenAPI 3 document for the HTTP API
//
//go:embed openapi.yaml
var Spec []byte
