package transport

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"gadget-grove/internal/domain"
	"gadget-grove/internal/service"

	"github.com/spf13/cast"
)

var (
	ErrInvalidPrice     = errors.New("price is not a number")
	ErrInvalidAttribute = errors.New("attribute holds a number out of range")
)

// CreateProductRequest is the normalized create payload. Price is a pointer
// so that validation can tell "absent" from zero.
type CreateProductRequest struct {
	Name       string   `validate:"required"`
	Price      *float64 `validate:"required"`
	Category   string   `validate:"required"`
	Rating     float64
	Stock      float64
	Attributes map[string]interface{}
}

// NewCreateProductRequest coerces a decoded JSON object. Absent, null, false,
// empty-string and zero values count as missing. A present price that is not
// numeric yields ErrInvalidPrice; rating and stock fall back to 0. Extra
// fields holding a number that is not a finite float64, at any depth, yield
// ErrInvalidAttribute.
func NewCreateProductRequest(payload map[string]interface{}) (*CreateProductRequest, error) {
	req := &CreateProductRequest{
		Name:     toText(payload["name"]),
		Category: toText(payload["category"]),
	}

	if raw := payload["price"]; isPresent(raw) {
		price, ok := toNumber(raw)
		if !ok {
			return nil, ErrInvalidPrice
		}
		req.Price = &price
	}

	req.Rating, _ = toNumber(payload["rating"])
	req.Stock, _ = toNumber(payload["stock"])

	for key, value := range payload {
		if domain.IsReservedField(key) || key == "" || strings.HasPrefix(key, "$") {
			continue
		}
		if !finiteNumbers(value) {
			return nil, ErrInvalidAttribute
		}
		if req.Attributes == nil {
			req.Attributes = make(map[string]interface{})
		}
		req.Attributes[key] = value
	}

	return req, nil
}

// Params converts a validated request to service parameters.
func (r *CreateProductRequest) Params() service.NewProductParams {
	var price float64
	if r.Price != nil {
		price = *r.Price
	}

	return service.NewProductParams{
		Name:       r.Name,
		Price:      price,
		Category:   r.Category,
		Rating:     r.Rating,
		Stock:      r.Stock,
		Attributes: r.Attributes,
	}
}

// finiteNumbers reports whether every number inside v fits a float64.
func finiteNumbers(v interface{}) bool {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return err == nil && !math.IsInf(f, 0)
	case float64:
		return !math.IsNaN(val) && !math.IsInf(val, 0)
	case map[string]interface{}:
		for _, item := range val {
			if !finiteNumbers(item) {
				return false
			}
		}
	case []interface{}:
		for _, item := range val {
			if !finiteNumbers(item) {
				return false
			}
		}
	}
	return true
}

func isPresent(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return val != 0 && !math.IsNaN(val)
	default:
		return true
	}
}

func toText(v interface{}) string {
	if !isPresent(v) {
		return ""
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return ""
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// toNumber returns 0, false when v cannot be read as a finite number.
func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, true
	case json.Number:
		v = val.String()
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, true
		}
		v = val
	case map[string]interface{}, []interface{}:
		return 0, false
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
