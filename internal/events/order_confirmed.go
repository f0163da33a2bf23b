package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/freshmart/storefront/internal/order"
)

const (
	orderConfirmedEventName    = "OrderConfirmed"
	orderConfirmedEventVersion = 1
	orderConfirmedSchema       = "contracts/events/order/OrderConfirmed.v1.payload.schema.json"
)

// OrderLine mirrors a purchased line inside event payloads.
type OrderLine struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// OrderConfirmedPayload is the v1 payload schema.
type OrderConfirmedPayload struct {
	OrderID       int64       `json:"orderId"`
	Customer      string      `json:"customer,omitempty"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []OrderLine `json:"items"`
	TotalAmount   int64       `json:"totalAmount"`
	Timestamp     time.Time   `json:"timestamp"`
}

// OrderConfirmedEnvelope is the enveloped event structure.
type OrderConfirmedEnvelope = EventEnvelope[OrderConfirmedPayload]

// BuildOrderConfirmedEnvelope builds an enveloped OrderConfirmed event from a
// backend confirmation. seq may be nil when no sequence store is configured.
func BuildOrderConfirmedEnvelope(conf *order.Confirmation, seq *int64, meta EnvelopeMetadata) OrderConfirmedEnvelope {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}

	items := make([]OrderLine, 0, len(conf.Items))
	for _, it := range conf.Items {
		items = append(items, OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     int64(it.Price),
			Quantity:  it.Quantity,
		})
	}

	return OrderConfirmedEnvelope{
		EventName:     orderConfirmedEventName,
		EventVersion:  orderConfirmedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      storefrontServiceName,
		PartitionKey:  strconv.FormatInt(conf.OrderID, 10),
		Sequence:      seq,
		OccurredAt:    time.Now().UTC(),
		Schema:        orderConfirmedSchema,
		Payload: OrderConfirmedPayload{
			OrderID:       conf.OrderID,
			Customer:      conf.Customer,
			Status:        string(conf.Status),
			PaymentMethod: conf.PaymentMethod,
			Items:         items,
			TotalAmount:   int64(conf.TotalAmount),
			Timestamp:     conf.CreatedAt,
		},
	}
}
