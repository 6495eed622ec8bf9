// Package config provides centralized configuration management. Values are
// loaded from an optional YAML file and then overridden by environment
// variables with the BANKFLOW prefix, so a container deployment can tune the
// server, logging, analysis defaults, and whois client without shipping a
// config file.
package config
