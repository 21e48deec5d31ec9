// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import "testing"

func TestIconRenderPlainMode(t *testing.T) {
	SetPlainMode(true)
	defer SetPlainMode(false)

	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		got := icon.Render()
		if got != string(icon) {
			t.Errorf("plain mode should render bare icon, got %q for %q", got, string(icon))
		}
	}
}

func TestSetPlainModeOverridesDetection(t *testing.T) {
	SetPlainMode(true)
	if !PlainMode() {
		t.Error("SetPlainMode(true) not honored")
	}
	SetPlainMode(false)
	if PlainMode() {
		t.Error("SetPlainMode(false) not honored")
	}
}
