package integration

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/storefront/internal/events"
	"github.com/freshmart/storefront/internal/money"
	"github.com/freshmart/storefront/internal/order"
	"github.com/freshmart/storefront/internal/receipts"
	"github.com/freshmart/storefront/internal/testutil"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("STOREFRONT_INTEGRATION") == "" {
		t.Skip("set STOREFRONT_INTEGRATION=1 to run container-backed tests")
	}
}

func sampleConfirmation(orderID int64, customer string) *order.Confirmation {
	return &order.Confirmation{
		OrderID:       orderID,
		Status:        order.StatusConfirmed,
		Customer:      customer,
		PaymentMethod: "online",
		TotalAmount:   money.Amount(36000),
		Items: []order.Item{
			{ProductID: 1, Name: "Toor Dal", Price: 18000, Quantity: 2},
		},
		Message:   "Order placed",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestReceiptsRepositoryRoundTrip(t *testing.T) {
	requireDocker(t)
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	conn, cleanup := testutil.StartPostgres(ctx, t)
	defer cleanup()

	repo := receipts.NewRepository(conn)

	conf := sampleConfirmation(101, "alice")
	require.NoError(t, repo.Save(ctx, conf))

	got, err := repo.GetByOrderID(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, conf.OrderID, got.OrderID)
	require.Equal(t, order.StatusConfirmed, got.Status)
	require.Equal(t, conf.TotalAmount, got.TotalAmount)
	require.Len(t, got.Items, 1)
	require.Equal(t, "Toor Dal", got.Items[0].Name)

	// saving the same order again is a no-op, not an error, and must leave
	// the original receipt and its items untouched
	dup := sampleConfirmation(101, "alice")
	dup.Message = "replayed"
	require.NoError(t, repo.Save(ctx, dup))

	again, err := repo.GetByOrderID(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, again)
	require.Equal(t, "Order placed", again.Message)
	require.Len(t, again.Items, 1)

	require.NoError(t, repo.Save(ctx, sampleConfirmation(102, "alice")))
	require.NoError(t, repo.Save(ctx, sampleConfirmation(103, "bob")))

	history, err := repo.ListByCustomer(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)

	missing, err := repo.GetByOrderID(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestEventSequencesAcrossPartitions(t *testing.T) {
	requireDocker(t)
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	conn, cleanup := testutil.StartPostgres(ctx, t)
	defer cleanup()

	seqs := events.NewSequenceRepository(conn)

	for want := int64(1); want <= 3; want++ {
		got, err := seqs.NextSequence(ctx, "101")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	other, err := seqs.NextSequence(ctx, "102")
	require.NoError(t, err)
	require.Equal(t, int64(1), other)
}

func TestPublisherEmitsOrderConfirmed(t *testing.T) {
	requireDocker(t)
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	conn := testutil.StartRabbitMQ(ctx, t)

	logger := log.New(io.Discard, "", 0)
	pub, err := events.NewPublisher(conn, nil, logger)
	require.NoError(t, err)
	defer pub.Close()

	// independent consumer channel reading the durable storefront queue
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := events.DeclareOrderConfirmedQueue(ch)
	require.NoError(t, err)
	require.Equal(t, "storefront-engine.order.confirmed.v1", q.Name)

	deliveries, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, pub.PublishOrderConfirmed(ctx, sampleConfirmation(101, "alice")))

	var msg amqp.Delivery
	select {
	case msg = <-deliveries:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for OrderConfirmed delivery")
	}

	var env events.OrderConfirmedEnvelope
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	require.NoError(t, env.Validate("OrderConfirmed", 1))
	require.Equal(t, "101", env.PartitionKey)
	require.Equal(t, int64(101), env.Payload.OrderID)
	require.Equal(t, "online", env.Payload.PaymentMethod)
	require.Len(t, env.Payload.Items, 1)
}
