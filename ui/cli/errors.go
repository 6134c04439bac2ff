// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"strings"

	"github.com/toeirei/keyring/internal/i18n"
	"github.com/toeirei/keyring/internal/model"
)

// errorKinds is ordered: the first kind err matches selects the message.
var errorKinds = []struct {
	kind error
	id   string
}{
	{model.ErrNotFound, "error.not_found"},
	{model.ErrValidation, "error.validation"},
	{model.ErrConfigSync, "error.config_sync"},
	{model.ErrExternalTool, "error.external_tool"},
	{model.ErrStorage, "error.storage"},
}

// describeError renders err as one localized line.
func describeError(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			detail := strings.TrimPrefix(err.Error(), k.kind.Error()+": ")
			return i18n.T(k.id, detail)
		}
	}
	return i18n.T("error.generic", err.Error())
}
