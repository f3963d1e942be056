package domain

import (
	"fmt"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/tenantcrypt/internal/validation"
)

// FieldConfig declares one encrypted column of an entity.
//
// Required fields must be present and non-null in every record. Array fields hold a list
// that is JSON-encoded before encryption and decoded back to []any on decryption.
type FieldConfig struct {
	Name     string
	Required bool
	Array    bool
}

// Validate checks the field declaration.
func (f FieldConfig) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required,
			validation.Length(1, 255),
			customValidation.Identifier,
		),
	)
}

// EntityConfig lists the encrypted fields of one table. It is static configuration
// owned by the caller; this package only applies it.
//
// Example:
//
//	var CustomerFields = domain.EntityConfig{
//	    Table: "customers",
//	    Fields: []domain.FieldConfig{
//	        {Name: "email", Required: true},
//	        {Name: "phone"},
//	        {Name: "addresses", Array: true},
//	    },
//	}
type EntityConfig struct {
	Table  string
	Fields []FieldConfig
}

// Validate checks the table name, every field declaration, and rejects duplicate
// field names. The returned error wraps ErrInvalidInput.
func (e EntityConfig) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Table,
			validation.Required,
			validation.Length(1, 255),
			customValidation.Identifier,
		),
		validation.Field(&e.Fields,
			validation.Required,
			validation.By(uniqueFieldNames),
		),
	)
	return customValidation.WrapValidationError(err)
}

func uniqueFieldNames(value interface{}) error {
	fields, ok := value.([]FieldConfig)
	if !ok {
		return validation.NewError("validation_fields_type", "must be a list of field configs")
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return validation.NewError("validation_fields_unique", fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
