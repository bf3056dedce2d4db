// Package openapi embeds the OpenAPI document of the REST API.
package openapi

import _ "embed"

// Spec is the OpenAPI document in YAML.
//
//go:embed openapi.yaml
var Spec []byte
