package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/checkout"
	"github.com/payhuk02/payhula-sub010/internal/coupon"
	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/money"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
	"github.com/payhuk02/payhula-sub010/internal/redemption"
)

func xof(v int64) money.Money { return money.Money{Amount: v, Currency: "XOF"} }

type stubStore struct {
	carts     map[uuid.UUID]checkout.Cart
	coupons   map[string]coupon.Rule
	giftCards map[string]pricing.GiftCard
	orders    []checkout.Order
	createErr error
}

func (s *stubStore) LoadCart(_ context.Context, id uuid.UUID) (checkout.Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return checkout.Cart{}, checkout.ErrCartNotFound
	}
	return c, nil
}

func (s *stubStore) FindCouponRule(_ context.Context, code string) (coupon.Rule, error) {
	r, ok := s.coupons[code]
	if !ok {
		return coupon.Rule{}, checkout.ErrCouponNotFound
	}
	return r, nil
}

func (s *stubStore) FindGiftCard(_ context.Context, code string) (pricing.GiftCard, error) {
	g, ok := s.giftCards[code]
	if !ok {
		return pricing.GiftCard{}, checkout.ErrGiftCardNotFound
	}
	return g, nil
}

func (s *stubStore) CreateOrder(_ context.Context, o checkout.Order) (checkout.Order, error) {
	if s.createErr != nil {
		return checkout.Order{}, s.createErr
	}
	s.orders = append(s.orders, o)
	return o, nil
}

type stubRedeemer struct {
	giftCards []redemption.GiftCardRedemption
	coupons   []redemption.CouponUsage
	giftErr   error
}

func (r *stubRedeemer) RedeemGiftCard(_ context.Context, in redemption.GiftCardRedemption) error {
	if r.giftErr != nil {
		return r.giftErr
	}
	r.giftCards = append(r.giftCards, in)
	return nil
}

func (r *stubRedeemer) ConsumeCoupon(_ context.Context, in redemption.CouponUsage) error {
	r.coupons = append(r.coupons, in)
	return nil
}

type eventStore struct {
	topics []string
}

func (e *eventStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	e.topics = append(e.topics, topic)
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}, nil
}

type fixture struct {
	svc      *checkout.Service
	store    *stubStore
	redeemer *stubRedeemer
	events   *eventStore
	cartID   uuid.UUID
	couponID uuid.UUID
	cardID   uuid.UUID
}

func newFixture() fixture {
	cartID, couponID, cardID := uuid.New(), uuid.New(), uuid.New()
	store := &stubStore{
		carts: map[uuid.UUID]checkout.Cart{
			cartID: {ID: cartID, Currency: "XOF", Lines: []pricing.CartLine{
				{ProductID: "course-1", ProductType: pricing.ProductCourse, UnitPrice: xof(60000), Quantity: 1},
				{ProductID: "ebook-1", ProductType: pricing.ProductDigital, UnitPrice: xof(20000), Quantity: 2},
			}},
		},
		coupons: map[string]coupon.Rule{
			"WELCOME": {ID: couponID.String(), Code: "WELCOME", Kind: coupon.KindAmount, Value: 10000},
		},
		giftCards: map[string]pricing.GiftCard{
			"GIFT-1": {ID: cardID.String(), Code: "GIFT-1", Balance: xof(20000)},
		},
	}
	redeemer := &stubRedeemer{}
	evs := &eventStore{}
	svc := &checkout.Service{
		Store:      store,
		Calculator: pricing.NewCalculator(pricing.DefaultTaxTable(), pricing.DefaultShippingTable()),
		Redeemer:   redeemer,
		Events:     &events.Bus{Store: evs},
		Now:        func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
	return fixture{svc: svc, store: store, redeemer: redeemer, events: evs, cartID: cartID, couponID: couponID, cardID: cardID}
}

func TestQuoteAppliesCouponBeforeTaxAndGiftCardAfter(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Quote(context.Background(), checkout.QuoteInput{
		CartID: f.cartID, CouponCode: "WELCOME", GiftCardCode: "GIFT-1", Country: "bf",
	})
	require.NoError(t, err)
	require.Equal(t, "BF", q.Country)
	require.Equal(t, xof(100000), q.Subtotal)
	require.Equal(t, xof(10000), q.Total.CouponDiscount)
	require.Equal(t, xof(90000), q.Total.TaxableBase)
	require.Equal(t, xof(16200), q.Total.TaxAmount)
	require.Equal(t, xof(5000), q.Total.ShippingAmount)
	require.Equal(t, xof(111200), q.Total.AmountDueBeforeGiftCard)
	require.Equal(t, xof(20000), q.Total.GiftCardApplied)
	require.Equal(t, xof(91200), q.Total.FinalTotal)
	require.Empty(t, f.store.orders)
}

func TestQuoteUnknownCountryIsNotFatal(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Quote(context.Background(), checkout.QuoteInput{CartID: f.cartID, Country: "ZZ"})
	require.NoError(t, err)
	require.True(t, q.Total.UnknownCountry)
	require.Equal(t, xof(18000), q.Total.TaxAmount)
	require.Equal(t, xof(15000), q.Total.ShippingAmount)
}

func TestQuoteErrors(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Quote(context.Background(), checkout.QuoteInput{CartID: uuid.New(), Country: "BF"})
	require.ErrorIs(t, err, checkout.ErrCartNotFound)

	_, err = f.svc.Quote(context.Background(), checkout.QuoteInput{CartID: f.cartID, CouponCode: "NOPE", Country: "BF"})
	require.ErrorIs(t, err, checkout.ErrCouponNotFound)

	expired := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.store.coupons["OLD"] = coupon.Rule{ID: uuid.NewString(), Code: "OLD", Kind: coupon.KindAmount, Value: 100, ValidTo: &expired}
	_, err = f.svc.Quote(context.Background(), checkout.QuoteInput{CartID: f.cartID, CouponCode: "OLD", Country: "BF"})
	require.ErrorIs(t, err, coupon.ErrCouponExpired)

	f.store.giftCards["EUR"] = pricing.GiftCard{ID: uuid.NewString(), Code: "EUR", Balance: money.Money{Amount: 100, Currency: "EUR"}}
	_, err = f.svc.Quote(context.Background(), checkout.QuoteInput{CartID: f.cartID, GiftCardCode: "EUR", Country: "BF"})
	require.ErrorIs(t, err, pricing.ErrCurrencyMismatch)
}

func TestPlaceOrderRedeemsAndEmits(t *testing.T) {
	f := newFixture()
	placement, err := f.svc.PlaceOrder(context.Background(), checkout.QuoteInput{
		CartID: f.cartID, CouponCode: "WELCOME", GiftCardCode: "GIFT-1", Country: "BF",
	})
	require.NoError(t, err)
	require.Empty(t, placement.Warnings)
	require.Len(t, f.store.orders, 1)
	require.Equal(t, "pending_payment", placement.Order.Status)
	require.Equal(t, f.couponID, *placement.Order.CouponID)
	require.Equal(t, f.cardID, *placement.Order.GiftCardID)

	require.Len(t, f.redeemer.giftCards, 1)
	require.Equal(t, xof(20000), f.redeemer.giftCards[0].Amount)
	require.Equal(t, placement.Order.ID, f.redeemer.giftCards[0].OrderID)
	require.Len(t, f.redeemer.coupons, 1)
	require.Equal(t, xof(10000), f.redeemer.coupons[0].DiscountAmount)
	require.Equal(t, []string{events.TopicOrderCreated}, f.events.topics)
}

func TestPlaceOrderKeepsOrderWhenRedemptionFails(t *testing.T) {
	f := newFixture()
	f.redeemer.giftErr = redemption.ErrInsufficientBalance

	placement, err := f.svc.PlaceOrder(context.Background(), checkout.QuoteInput{
		CartID: f.cartID, GiftCardCode: "GIFT-1", Country: "BF",
	})
	require.NoError(t, err)
	require.Equal(t, []string{checkout.WarningGiftCardNotRedeemed}, placement.Warnings)
	require.Len(t, f.store.orders, 1)
	require.Equal(t, []string{events.TopicOrderCreated, events.TopicRedemptionFailed}, f.events.topics)
}

func TestPlaceOrderWithoutCodesSkipsRedemption(t *testing.T) {
	f := newFixture()
	placement, err := f.svc.PlaceOrder(context.Background(), checkout.QuoteInput{CartID: f.cartID, Country: "BF"})
	require.NoError(t, err)
	require.Nil(t, placement.Order.CouponID)
	require.Nil(t, placement.Order.GiftCardID)
	require.Empty(t, f.redeemer.giftCards)
	require.Empty(t, f.redeemer.coupons)
}

func TestPlaceOrderCreateFailure(t *testing.T) {
	f := newFixture()
	f.store.createErr = errors.New("db down")
	_, err := f.svc.PlaceOrder(context.Background(), checkout.QuoteInput{CartID: f.cartID, GiftCardCode: "GIFT-1", Country: "BF"})
	require.Error(t, err)
	require.Empty(t, f.redeemer.giftCards)
	require.Empty(t, f.events.topics)
}
