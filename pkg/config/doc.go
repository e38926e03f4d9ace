// Package config loads and validates credd's YAML server configuration.
//
// A config file is discovered as credd.yaml or credd.yml in the working
// directory (or named explicitly via --config or CREDD_CONFIG), checked
// against an embedded JSON Schema, and decoded on top of the built-in
// defaults so operators only write what differs:
//
//	version: "1"
//	admin:
//	  port: 4780
//	  auth:
//	    key: ${CREDD_API_KEY}
//	pool:
//	  url: http://localhost:4785
//	logging:
//	  level: debug
//
// Environment references like ${CREDD_API_KEY} or ${PORT:-4780} are
// expanded before parsing. An include section merges additional files
// (glob patterns supported) on top of the main one:
//
//	include:
//	  - conf.d/*.yaml
//
// Load performs all of the above and finishes with Validate, which
// reports every violation at once with its config path, e.g.
// "admin.port: invalid port 70000, must be 0-65535".
package config
