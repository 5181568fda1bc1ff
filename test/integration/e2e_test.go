package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudh2403/Seat-Reservation-System/internal/catalog"
	chargerapp "github.com/anirudh2403/Seat-Reservation-System/internal/charger/application"
	chargerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/charger/infrastructure/gateway"
	chargerDB "github.com/anirudh2403/Seat-Reservation-System/internal/charger/infrastructure/postgres"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	ledgerapp "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/application"
	ledgerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
	orderapp "github.com/anirudh2403/Seat-Reservation-System/internal/order/application"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
	orderDB "github.com/anirudh2403/Seat-Reservation-System/internal/order/infrastructure/postgres"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/outbox"
)

const topic = "order.events"

func TestReservationEndToEnd(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") != "1" {
		t.Skip("set TEST_INTEGRATION=1 to run container tests")
	}

	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, orderDB.EnsureSchema(ctx, pool))
	require.NoError(t, chargerDB.EnsureSchema(ctx, pool))

	clk := clock.NewSystem()

	led := ledgerapp.NewLedger(log, clk)
	led.AddSeats("ev-1", []string{"A1", "A2"})
	cat := catalog.NewStatic()
	cat.AddEvent("ev-1", []string{"A1", "A2"})

	charger := chargerapp.NewService(log, chargerDB.NewRepository(log, pool), gateway.NewSimulated(log, 0, 0), clk)
	repo := orderDB.NewRepository(log, pool)
	svc := orderapp.NewService(log, repo, led, charger, cat, clk)

	// relay drains the outbox onto the broker while the saga runs
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(env.KAddr...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()
	relay := outbox.NewRelay(log, orderDB.NewOutboxStore(log, pool), outbox.NewDispatcher(log, writer, topic), "e2e-relay")
	go func() { _ = relay.Run(relayCtx) }()

	o, err := svc.PlaceOrder(ctx, orderapp.PlaceOrderInput{
		BuyerID: "buyer-1",
		Lines: []domain.Line{
			{EventID: "ev-1", SeatID: "A1", PricePaise: 10000},
			{EventID: "ev-1", SeatID: "A2", PricePaise: 20000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, int64(31500), o.TotalPaise)

	// durable state round-trips through postgres
	stored, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Len(t, stored.Lines, 2)

	attempt, err := charger.Lookup(ctx, orderapp.ChargeKey(o.ID))
	require.NoError(t, err)
	assert.Equal(t, chargerdomain.OutcomeSuccess, attempt.Outcome)

	// the same seats cannot be sold twice
	_, err = svc.PlaceOrder(ctx, orderapp.PlaceOrderInput{
		BuyerID: "buyer-2",
		Lines:   []domain.Line{{EventID: "ev-1", SeatID: "A1", PricePaise: 10000}},
	})
	var unavailable *ledgerdomain.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)

	// lifecycle events reached the broker through the outbox
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     env.KAddr,
		Topic:       topic,
		GroupID:     "e2e-check",
		StartOffset: kafka.FirstOffset,
		MaxWait:     time.Second,
	})
	defer reader.Close()

	types := map[string]bool{}
	readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
	defer cancelRead()
	for len(types) < 3 {
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err)
		for _, h := range msg.Headers {
			if h.Key == "event_type" {
				types[string(h.Value)] = true
			}
		}
	}
	assert.True(t, types["OrderCreated"])
	assert.True(t, types["OrderConfirmed"])
	assert.True(t, types["OrderFailed"])
}
