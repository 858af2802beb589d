package provider

import (
	"context"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// Item is one piece of generated content.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

// GenerateRequest is the JSON body posted to the content generator.
type GenerateRequest struct {
	UserID      string             `json:"userId"`
	Count       int                `json:"count"`
	Preferences domain.Preferences `json:"preferences"`
}

// Batch is the generator's response. It may hold fewer items than requested.
type Batch struct {
	Items []Item `json:"items"`
}

// Delivery is the JSON body posted to the delivery service.
type Delivery struct {
	UserID  string `json:"userId"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Items   []Item `json:"items"`
}

// Receipt is the delivery service's answer. Only success or failure is
// modelled; there is no partial delivery.
type Receipt struct {
	Delivered bool
	MessageID string
}

// Generator abstracts the content-generation service.
// Mocking this interface in tests gives full control over generation
// behaviour without making real HTTP calls.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Batch, error)
}

// Deliverer abstracts the delivery transport. A nil error with
// Receipt.Delivered == false means the service declined the delivery.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) (Receipt, error)
}
