package config

import "testing"

func TestMongoDatabaseNameReplacesHyphens(t *testing.T) {
	cfg := &Config{IndexerID: "amm-contest-indexer"}
	if got, want := cfg.MongoDatabaseName(), "amm_contest_indexer"; got != want {
		t.Fatalf("MongoDatabaseName() = %q, want %q", got, want)
	}
}

func TestMongoDatabaseNameNoHyphens(t *testing.T) {
	cfg := &Config{IndexerID: "plain"}
	if got, want := cfg.MongoDatabaseName(), "plain"; got != want {
		t.Fatalf("MongoDatabaseName() = %q, want %q", got, want)
	}
}
