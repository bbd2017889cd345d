package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a product document in the catalog.
//
// Attributes holds any extra top-level fields supplied at creation time;
// they are stored inline next to the known fields.
type Product struct {
	ID         primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	Name       string                 `json:"name" bson:"name"`
	Price      float64                `json:"price" bson:"price"`
	Category   string                 `json:"category" bson:"category"`
	Rating     float64                `json:"rating" bson:"rating"`
	Stock      float64                `json:"stock" bson:"stock"`
	CreatedAt  time.Time              `json:"createdAt" bson:"createdAt"`
	Attributes map[string]interface{} `json:"-" bson:",inline"`
}

// Reserved field names that Attributes may never shadow.
var reservedFields = map[string]bool{
	"_id":       true,
	"name":      true,
	"price":     true,
	"category":  true,
	"rating":    true,
	"stock":     true,
	"createdAt": true,
}

// IsReservedField reports whether key is owned by a typed Product field.
func IsReservedField(key string) bool {
	return reservedFields[key]
}

// MarshalJSON flattens Attributes into the top-level object.
func (p Product) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Attributes)+len(reservedFields))
	for k, v := range p.Attributes {
		if !reservedFields[k] {
			out[k] = v
		}
	}

	out["_id"] = p.ID
	out["name"] = p.Name
	out["price"] = p.Price
	out["category"] = p.Category
	out["rating"] = p.Rating
	out["stock"] = p.Stock
	out["createdAt"] = p.CreatedAt

	return json.Marshal(out)
}
