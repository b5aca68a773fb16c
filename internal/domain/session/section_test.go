package session

import (
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSections(t *testing.T) {
	sections := AllSections()

	assert.Len(t, sections, 11)
	for _, s := range sections {
		assert.True(t, s.Valid(), s)
	}
}

func TestParseSection(t *testing.T) {
	tests := []struct {
		input   string
		want    SectionName
		wantErr bool
	}{
		{"customers", SectionCustomers, false},
		{"timeRegistration", SectionTimeRegistration, false},
		{"chat", SectionChat, false},
		{"TimeRegistration", "", true},
		{"invoices", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSection(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "INVALID_SECTION", shared.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
