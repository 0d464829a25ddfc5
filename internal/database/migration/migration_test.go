package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/model"
)

func TestFiles_Ordered(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Len(t, names, 5)
	assert.Equal(t, "00001_create_users.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestMigrations_CoverEveryMediaTable(t *testing.T) {
	var all strings.Builder
	names, err := Files()
	require.NoError(t, err)
	for _, n := range names {
		b, err := migrations.ReadFile(dir + "/" + n)
		require.NoError(t, err)
		body := string(b)
		assert.Contains(t, body, "-- +goose Up", n)
		assert.Contains(t, body, "-- +goose Down", n)
		all.WriteString(body)
	}

	for _, k := range model.Kinds {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+k.Table()+" (")
	}
}
