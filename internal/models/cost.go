package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CostBreakdown holds the money spent on a maintenance request, in USD.
// Parts is a cache of PartsCost over the request's parts ledger.
type CostBreakdown struct {
	Labor    float64 `json:"labor" bson:"labor"`
	Parts    float64 `json:"parts" bson:"parts"`
	External float64 `json:"external" bson:"external"`
}

// Total sums every cost component.
func (c CostBreakdown) Total() float64 {
	return c.Labor + c.Parts + c.External
}

// PartUsage is one entry of the append-only parts ledger.
type PartUsage struct {
	Name        string             `json:"name" bson:"name"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	UnitCost    float64            `json:"unit_cost" bson:"unit_cost"`
	RequestedBy primitive.ObjectID `json:"requested_by" bson:"requested_by"`
	RequestedAt time.Time          `json:"requested_at" bson:"requested_at"`
}

// Cost returns quantity × unit cost.
func (p PartUsage) Cost() float64 {
	return float64(p.Quantity) * p.UnitCost
}

// PartsCost folds a parts ledger into its total cost.
func PartsCost(parts []PartUsage) float64 {
	total := 0.0
	for _, p := range parts {
		total += p.Cost()
	}
	return total
}
