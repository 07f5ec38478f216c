// Package config defines the resolved settings for a packaging run and
// provides helpers to validate and persist them in YAML format.
//
// The Config type bundles the seven positional CLI parameters with state
// resolved once from the environment (staging root, manufacturer), so the
// rest of the pipeline never touches process environment directly.
package config
