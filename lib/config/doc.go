// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for logregator.
//
// Configuration is loaded from a single file specified by either the
// LOGREGATOR_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no automatic file
// search. Files are YAML, or JSON with comments when named *.json or
// *.jsonc.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. In production a sink with a file
// stops writing to the console unless the console is asked for
// explicitly.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Sink, Transport, Scope
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// Level names are parsed by package logging; this package depends on
// nothing else in logregator.
package config
