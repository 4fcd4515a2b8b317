// Package config loads scan settings from YAML.
//
// Values are layered with the following precedence, highest first:
//
//  1. Command-line flags (applied by the CLI)
//  2. GQLPROBE_* environment variables (ApplyEnv)
//  3. The file named by --config, or gqlprobe.yaml / .gqlprobe.yaml in the
//     working directory (Load, FindLocal)
//  4. Default()
//
// A minimal file:
//
//	mode: both
//	endpoints:
//	  - https://api.example.com/graphql
//	probe:
//	  concurrency: 5
//	  retries: 2
//	  rate: 20
//	transport:
//	  proxy: socks5://127.0.0.1:9050
//	  headers:
//	    - "Authorization: Bearer token"
//	filter:
//	  exclude: ["mutation.*"]
//	pii:
//	  keywords:
//	    internal: [employeeNumber, badge]
//	output:
//	  jsonl: results.jsonl
//	log:
//	  file: scan.log
package config
