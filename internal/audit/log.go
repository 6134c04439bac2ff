// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import "github.com/toeirei/keyring/internal/logging"

func dbLogf(format string, v ...any) {
	logging.Debugf("[audit] "+format, v...)
}
