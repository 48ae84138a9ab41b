package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/insurtree/internal/engine"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jsonRecord is the wire shape of one record. Pointers distinguish a
// missing field from zero.
type jsonRecord struct {
	ID       *int64 `json:"id" validate:"required"`
	ParentID *int64 `json:"parentId"`
	Name     string `json:"name" validate:"max=256"`
	Value    *int64 `json:"value" validate:"required"`
}

// JSONParser accepts either a bare array of records or {"insurances": [...]}.
type JSONParser struct{}

func (p *JSONParser) Parse(r io.Reader, filename string) ([]engine.Record, error) {
	return DecodeJSON(r)
}

// DecodeJSON decodes and validates a JSON record list.
func DecodeJSON(r io.Reader) ([]engine.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var items []jsonRecord
	switch {
	case len(data) == 0:
		return []engine.Record{}, nil
	case data[0] == '{':
		var wrapped struct {
			Insurances []jsonRecord `json:"insurances"`
		}
		err = json.Unmarshal(data, &wrapped)
		items = wrapped.Insurances
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	out := make([]engine.Record, 0, len(items))
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, validationError(i+1, err)
		}
		out = append(out, engine.Record{
			ID:       *item.ID,
			ParentID: item.ParentID,
			Name:     item.Name,
			Value:    *item.Value,
		})
	}
	return out, nil
}

func validationError(line int, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &RowError{Line: line, Field: fe.Field(), Err: fmt.Errorf("failed %q validation", fe.Tag())}
	}
	return &RowError{Line: line, Field: "record", Err: err}
}
