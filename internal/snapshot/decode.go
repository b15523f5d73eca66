package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/types"
)

// ErrUnsupportedVersion is returned when a document carries an
// introspection_version this build does not understand.
var ErrUnsupportedVersion = errors.New("unsupported introspection_version")

// Source is the decoded output of the extraction query, before membership
// and ordering are re-applied.
type Source struct {
	Database     types.Row
	Categories   map[string][]types.Row
	CatalogByOID map[string]string
	CurrentUser  string
	PGVersion    string
}

// Decode parses a query result or a previously written document. Numbers
// are kept as json.Number so oids are never rounded.
func Decode(raw []byte) (*Source, error) {
	var top map[string]json.RawMessage
	if err := unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	if err := checkVersion(top[catalog.FieldIntrospectionVersion]); err != nil {
		return nil, err
	}

	src := &Source{Categories: make(map[string][]types.Row)}

	for _, c := range catalog.Categories() {
		if c.Hidden {
			continue
		}
		value, ok := top[c.Name]
		if !ok {
			return nil, fmt.Errorf("document is missing field %q", c.Name)
		}
		if c.Singleton {
			var row types.Row
			if err := unmarshal(value, &row); err != nil {
				return nil, fmt.Errorf("field %q: %w", c.Name, err)
			}
			src.Database = row
			continue
		}
		var rows []types.Row
		if err := unmarshal(value, &rows); err != nil {
			return nil, fmt.Errorf("field %q: %w", c.Name, err)
		}
		for i, r := range rows {
			if r == nil {
				return nil, fmt.Errorf("field %q: element %d is not an object", c.Name, i)
			}
		}
		src.Categories[c.Name] = rows
	}

	if err := unmarshal(top[catalog.FieldCatalogByOID], &src.CatalogByOID); err != nil {
		return nil, fmt.Errorf("field %q: %w", catalog.FieldCatalogByOID, err)
	}
	if err := unmarshalString(top, catalog.FieldCurrentUser, &src.CurrentUser); err != nil {
		return nil, err
	}
	if err := unmarshalString(top, catalog.FieldPGVersion, &src.PGVersion); err != nil {
		return nil, err
	}

	return src, nil
}

func checkVersion(raw json.RawMessage) error {
	if raw == nil {
		return fmt.Errorf("%w: field is missing", ErrUnsupportedVersion)
	}
	var version json.Number
	if err := unmarshal(raw, &version); err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, string(raw))
	}
	if v, err := version.Int64(); err != nil || v != catalog.IntrospectionVersion {
		return fmt.Errorf("%w: got %s, want %d", ErrUnsupportedVersion, version, catalog.IntrospectionVersion)
	}
	return nil
}

func unmarshalString(top map[string]json.RawMessage, field string, dst *string) error {
	raw, ok := top[field]
	if !ok {
		return fmt.Errorf("document is missing field %q", field)
	}
	if err := unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	return nil
}

func unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
