// Package config loads chessinsight settings.
//
// Settings are layered, highest precedence first:
//
//  1. command line flags (applied by the caller with Settings.Set* helpers)
//  2. CHESSINSIGHT_* environment variables
//  3. a .env file in the working directory
//  4. a YAML file (chessinsight.yaml, or the path given with --config)
//  5. built-in defaults
//
// YAML files may reference the environment with ${VAR} or ${VAR:-default}
// and are checked against an embedded JSON Schema before they are decoded.
// Sources records where every non-default value came from.
package config
