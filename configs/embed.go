// Package configs provides the embedded configuration template for docdex.
//
// The template is embedded at build time with //go:embed so it ships inside
// the binary regardless of how docdex is installed. 'docdex init' writes it
// as .docdex.yaml; the commented values mirror the hardcoded defaults in
// internal/config.
package configs

import _ "embed"

// ProjectConfigTemplate is the template for the project-level .docdex.yaml,
// written by 'docdex init' into the working directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
