// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fake

import "encoding/json"

// tableNameFromRuleset extracts the table name from a synthesised
// ruleset document's "table" statement, so the fake NftCli can key its
// in-memory store the same way a real `nft -j -f -` invocation would.
func tableNameFromRuleset(doc []byte) string {
	var parsed struct {
		Nftables []map[string]json.RawMessage `json:"nftables"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return ""
	}
	for _, stmt := range parsed.Nftables {
		raw, ok := stmt["table"]
		if !ok {
			continue
		}
		var table struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &table) == nil {
			return table.Name
		}
	}
	return ""
}

// countStatements counts chain and rule statements in doc, backing the
// fake NftCli's ListTableDetail.
func countStatements(doc []byte) (chains, rules int) {
	var parsed struct {
		Nftables []map[string]json.RawMessage `json:"nftables"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return 0, 0
	}
	for _, stmt := range parsed.Nftables {
		if _, ok := stmt["chain"]; ok {
			chains++
		}
		if _, ok := stmt["rule"]; ok {
			rules++
		}
	}
	return chains, rules
}
