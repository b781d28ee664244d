// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the CDR billing
// server.
//
// Configuration comes from a single file named by the --config flag
// or the CDRBILL_CONFIG environment variable (via [Load]), or from an
// explicit path (via [LoadFile]). With neither, [Default] is used
// unchanged: a development server needs no file. There is no
// automatic file search.
//
// Files ending in .json or .jsonc are parsed as JSON with comments;
// all others as YAML. The file may contain environment-specific
// sections (development, staging, production) that override base
// values when [Config].Environment matches. Production enables report
// archiving unless its section says otherwise.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${CDRBILL_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// This package depends on no other cdrbill packages.
package config
