// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file serves as the bridge between the build system and the runtime logic. It utilizes the Go
embed package to bake the proof_gate_patterns.yaml file directly into the compiled binary.
This ensures that the gate rules are immutable at runtime and travel with the executable.
*/

package enforcement

import (
	_ "embed"
)

// ProofGatePatterns holds the raw byte content of the 'proof_gate_patterns.yaml' file.
//
// This variable is populated at compile-time using the Go 'embed' directive. By baking the
// YAML directly into the binary, we ensure that the gate rules are immutable and cannot be
// weakened inside a checked-out problem repository without recompiling the application.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(enforcement.ProofGatePatterns, &targetStruct)
//
//go:embed proof_gate_patterns.yaml
var ProofGatePatterns []byte
