package config

import (
	"os"
	"strings"
)

// StrictLedgerLinks makes posters fail with a missing ledger link error instead of
// skipping the journal line when a document's contact, safe, store or category has no account.
//
// Set via env:
// - STRICT_LEDGER_LINKS=true
func StrictLedgerLinks() bool {
	return boolFromEnv("STRICT_LEDGER_LINKS")
}

// AutoPostDocuments posts documents right after they are created.
//
// Set via env:
// - AUTO_POST_DOCUMENTS=true
func AutoPostDocuments() bool {
	return boolFromEnv("AUTO_POST_DOCUMENTS")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
