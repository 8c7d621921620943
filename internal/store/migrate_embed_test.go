// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

package store

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err, "should read embedded migrations directory")

	fileNames := make(map[string]bool)
	for _, entry := range entries {
		fileNames[entry.Name()] = true
	}

	for _, expected := range []string{
		"000001_users.up.sql",
		"000001_users.down.sql",
	} {
		assert.True(t, fileNames[expected], "should contain %s", expected)
	}

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNNNN_name.(up|down).sql", entry.Name())
	}
}

// The unique constraints carry fixed names; conflict mapping in the user
// repository keys off them.
func TestMigrations_ConstraintNames(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/000001_users.up.sql")
	require.NoError(t, err)

	assert.Contains(t, string(up), "users_username_key")
	assert.Contains(t, string(up), "users_email_key")
}
