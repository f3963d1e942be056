package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

func TestEntityConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    EntityConfig
		shouldErr bool
		errMsg    string
	}{
		{
			name: "valid",
			config: EntityConfig{
				Table:  "customers",
				Fields: []FieldConfig{{Name: "email", Required: true}, {Name: "phone"}},
			},
		},
		{
			name:      "missing table",
			config:    EntityConfig{Fields: []FieldConfig{{Name: "email"}}},
			shouldErr: true,
			errMsg:    "Table",
		},
		{
			name:      "no fields",
			config:    EntityConfig{Table: "customers"},
			shouldErr: true,
			errMsg:    "Fields",
		},
		{
			name: "invalid field name",
			config: EntityConfig{
				Table:  "customers",
				Fields: []FieldConfig{{Name: "e-mail"}},
			},
			shouldErr: true,
		},
		{
			name: "empty field name",
			config: EntityConfig{
				Table:  "customers",
				Fields: []FieldConfig{{Name: ""}},
			},
			shouldErr: true,
		},
		{
			name: "duplicate field",
			config: EntityConfig{
				Table:  "customers",
				Fields: []FieldConfig{{Name: "email"}, {Name: "email", Required: true}},
			},
			shouldErr: true,
			errMsg:    "duplicate field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.shouldErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}
