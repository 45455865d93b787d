// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package store

import "github.com/oklog/ulid/v2"

// ID prefixes identify the row kind at a glance in logs and payloads.
const (
	PrefixProject    = "prj"
	PrefixPerson     = "per"
	PrefixDecision   = "dec"
	PrefixRaci       = "rac"
	PrefixEvent      = "evt"
	PrefixEdge       = "edg"
	PrefixAIQuery    = "qry"
	PrefixAIDecision = "aid"
	PrefixGlossary   = "glo"
	PrefixKPI        = "kpi"
	PrefixInitiative = "ini"
)

// NewID mints a prefixed, lexically sortable identifier.
func NewID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}
