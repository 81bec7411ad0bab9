// Package config loads runtime configuration for the authctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file passed to LoadConfig (the CLI's --config flag).
//  3. Environment: ERGOAUTH_SERVER, ERGOAUTH_SESSION, ERGOAUTH_TIMEOUT.
//  4. Command-line flags, applied by the CLI itself.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "session_file": "/home/me/.ergoauth/session.json",
//	  "timeout": "10s"
//	}
package config
