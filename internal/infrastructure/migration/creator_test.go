package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add profiles table", "add_profiles_table"},
		{"Add-Section-Tables", "add_section_tables"},
		{"ROLE__CAPABILITIES", "role_capabilities"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mf, err := createAt(dir, "add chat messages", "Chat section storage", now)
	require.NoError(t, err)

	assert.Equal(t, "20260301093000", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20260301093000_add_chat_messages.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20260301093000_add_chat_messages.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add chat messages\n")
	assert.Contains(t, string(up), "-- Chat section storage")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	_, err = createAt(dir, "add chat messages", "", now)
	assert.Error(t, err, "existing files are not overwritten")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_sections.up.sql", "000002_sections.down.sql",
		"000001_identity.up.sql", "000001_identity.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_identity", "000002_sections"}, names)

	names, err = ListMigrations(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
