// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config provides configuration loading and persistence for
// Keyring. It uses Viper for file/env/flag parsing and goccy/go-yaml to
// write configuration files.
package config
