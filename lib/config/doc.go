// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for
// bureau-cryptoevents.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_CRYPTOEVENTS_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadFile]). There are no fallbacks, no
// ~/.config discovery, and no automatic file search.
//
// The file supports environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without an explicit section
// logs JSON at warn level.
//
// Path fields (pending.database, schemas.directory) expand ${HOME} and
// ${VAR:-default}. No other environment variables override config
// values.
//
// Key exports:
//
//   - [Config] -- identity, pending store, schema, and log settings
//   - [Default] -- a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other packages in this module.
package config
