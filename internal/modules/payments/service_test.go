package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

const testSecret = "test_key_secret"

type fakeGateway struct {
	intentID string
	refundID string
	payment  GatewayPayment

	intentErr error
	fetchErr  error
	refundErr error

	intentCalls int
	fetchCalls  int
	refundCalls int
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount money.Amount, currency, receipt string) (string, error) {
	g.intentCalls++
	if g.intentErr != nil {
		return "", g.intentErr
	}
	if g.intentID == "" {
		return "order_fake_" + uuid.NewString()[:8], nil
	}
	return g.intentID, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, gatewayPaymentID string) (GatewayPayment, error) {
	g.fetchCalls++
	if g.fetchErr != nil {
		return GatewayPayment{}, g.fetchErr
	}
	return g.payment, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, gatewayPaymentID string, amount money.Amount, notes map[string]string) (string, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return "", g.refundErr
	}
	if g.refundID == "" {
		return "rfnd_fake_1", nil
	}
	return g.refundID, nil
}

func setupDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:payments_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&orders.Order{}, &Payment{}, &GatewayEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(db *gorm.DB, gw *fakeGateway) *Service {
	return NewService(db, gw, "rzp_test_key", testSecret, "INR")
}

func seedOrder(t *testing.T, db *gorm.DB, status orders.Status, total money.Amount) orders.Order {
	t.Helper()
	now := time.Now()
	o := orders.Order{
		ID:         uuid.NewString(),
		UserID:     uuid.NewString(),
		TotalPaise: total,
		Currency:   "INR",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func seedPayment(t *testing.T, db *gorm.DB, p Payment) Payment {
	t.Helper()
	now := time.Now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.GatewayOrderID == "" {
		p.GatewayOrderID = "order_seed_" + uuid.NewString()[:8]
	}
	if p.Currency == "" {
		p.Currency = "INR"
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func TestCreateIntentForOrder(t *testing.T) {
	db := setupDB(t, "create_intent")
	gw := &fakeGateway{intentID: "order_rzp_1"}
	svc := newTestService(db, gw)
	ord := seedOrder(t, db, orders.StatusPending, money.FromRupees(500))

	res, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &ord.ID, Amount: ord.TotalPaise})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if res.GatewayOrderID != "order_rzp_1" {
		t.Fatalf("gateway order id = %s", res.GatewayOrderID)
	}
	if res.Receipt != "receipt_"+ord.ID {
		t.Fatalf("receipt = %s", res.Receipt)
	}
	if res.GatewayKeyID != "rzp_test_key" {
		t.Fatalf("key id = %s", res.GatewayKeyID)
	}

	var p Payment
	if err := db.First(&p, "id = ?", res.PaymentID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if p.Status != StatusCreated {
		t.Fatalf("status = %s, want CREATED", p.Status)
	}
	if p.OrderID == nil || *p.OrderID != ord.ID {
		t.Fatalf("payment not linked to order")
	}
	if p.UserID == nil || *p.UserID != ord.UserID {
		t.Fatalf("payment not linked to order owner")
	}
	if p.AmountPaise != money.FromRupees(500) {
		t.Fatalf("amount = %d", p.AmountPaise.Paise())
	}
}

func TestCreateIntentRejectsSecondPaymentAfterSuccess(t *testing.T) {
	db := setupDB(t, "dup_intent")
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	ord := seedOrder(t, db, orders.StatusConfirmed, money.FromRupees(500))
	seedPayment(t, db, Payment{OrderID: &ord.ID, AmountPaise: ord.TotalPaise, Status: StatusSuccess})

	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &ord.ID, Amount: ord.TotalPaise})
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("got %v, want ErrDuplicatePayment", err)
	}
	if gw.intentCalls != 0 {
		t.Fatalf("gateway called for a rejected duplicate")
	}
}

func TestCreateIntentGatewayFailureLeavesNoRow(t *testing.T) {
	db := setupDB(t, "intent_gw_fail")
	gw := &fakeGateway{intentErr: ErrGatewayUnavailable}
	svc := newTestService(db, gw)
	ord := seedOrder(t, db, orders.StatusPending, money.FromRupees(500))

	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &ord.ID, Amount: ord.TotalPaise})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("got %v, want ErrGatewayUnavailable", err)
	}

	var cnt int64
	if err := db.Model(&Payment{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("a failed gateway call left %d payment rows", cnt)
	}
}

func TestCreateIntentValidation(t *testing.T) {
	db := setupDB(t, "intent_validation")
	svc := newTestService(db, &fakeGateway{})
	uid := uuid.NewString()

	if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{UserID: &uid, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{Amount: money.FromRupees(10)}); !errors.Is(err, ErrOrderOrUserRequired) {
		t.Fatalf("no refs: got %v, want ErrOrderOrUserRequired", err)
	}
	missing := uuid.NewString()
	if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &missing, Amount: money.FromRupees(10)}); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("missing order: got %v, want orders.ErrNotFound", err)
	}
}

func TestVerifySuccessPromotesOrder(t *testing.T) {
	db := setupDB(t, "verify_ok")
	gw := &fakeGateway{intentID: "order_rzp_v1", payment: GatewayPayment{Status: "captured", Method: "upi", UpiID: "rider@upi"}}
	svc := newTestService(db, gw)
	ord := seedOrder(t, db, orders.StatusPending, money.FromRupees(500))

	res, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &ord.ID, Amount: ord.TotalPaise})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	sig := PaymentSignature(res.GatewayOrderID, "pay_rzp_v1", testSecret)
	p, err := svc.Verify(context.Background(), VerifyInput{
		GatewayOrderID:   res.GatewayOrderID,
		GatewayPaymentID: "pay_rzp_v1",
		Signature:        sig,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", p.Status)
	}
	if p.GatewayPaymentID == nil || *p.GatewayPaymentID != "pay_rzp_v1" {
		t.Fatalf("gateway payment id not recorded")
	}
	if p.Method == nil || *p.Method != MethodUpi {
		t.Fatalf("method detail not applied")
	}
	if p.UpiID == nil || *p.UpiID != "rider@upi" {
		t.Fatalf("upi id not applied")
	}

	var got orders.Order
	if err := db.First(&got, "id = ?", ord.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != orders.StatusConfirmed {
		t.Fatalf("order = %s, want CONFIRMED", got.Status)
	}
}

func TestVerifyMismatchPersistsFailure(t *testing.T) {
	db := setupDB(t, "verify_bad_sig")
	svc := newTestService(db, &fakeGateway{intentID: "order_rzp_v2"})
	ord := seedOrder(t, db, orders.StatusPending, money.FromRupees(500))

	res, err := svc.CreateIntent(context.Background(), CreateIntentInput{OrderID: &ord.ID, Amount: ord.TotalPaise})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	_, err = svc.Verify(context.Background(), VerifyInput{
		GatewayOrderID:   res.GatewayOrderID,
		GatewayPaymentID: "pay_rzp_v2",
		Signature:        "not-a-signature",
	})
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("got %v, want ErrSignatureMismatch", err)
	}

	// The mismatch must be durable even though the call errored.
	var p Payment
	if err := db.First(&p, "id = ?", res.PaymentID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if p.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", p.Status)
	}
	if p.FailureReason == nil || *p.FailureReason != "Invalid signature" {
		t.Fatalf("failure reason = %v", p.FailureReason)
	}

	var got orders.Order
	if err := db.First(&got, "id = ?", ord.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != orders.StatusPending {
		t.Fatalf("order moved to %s on failed verification", got.Status)
	}
}

func TestVerifyUnknownIntent(t *testing.T) {
	db := setupDB(t, "verify_unknown")
	svc := newTestService(db, &fakeGateway{})

	_, err := svc.Verify(context.Background(), VerifyInput{GatewayOrderID: "order_nope", GatewayPaymentID: "pay_x", Signature: "sig"})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("got %v, want ErrPaymentNotFound", err)
	}
}

func TestProcessRefundPartialThenFull(t *testing.T) {
	db := setupDB(t, "refund_flow")
	gw := &fakeGateway{refundID: "rfnd_1"}
	svc := newTestService(db, gw)
	ord := seedOrder(t, db, orders.StatusConfirmed, money.FromRupees(1000))
	gpid := "pay_rzp_r1"
	p := seedPayment(t, db, Payment{
		OrderID:          &ord.ID,
		UserID:           &ord.UserID,
		AmountPaise:      money.FromRupees(1000),
		Status:           StatusSuccess,
		GatewayPaymentID: &gpid,
	})

	got, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: money.FromRupees(400), Reason: "partial cancellation"})
	if err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if got.Status != StatusPartialRefund {
		t.Fatalf("status = %s, want PARTIAL_REFUND", got.Status)
	}
	if got.RefundedPaise != money.FromRupees(400) {
		t.Fatalf("refunded = %d", got.RefundedPaise.Paise())
	}
	if got.RefundID == nil || *got.RefundID != "rfnd_1" {
		t.Fatalf("refund id not recorded")
	}

	// Refunding more than the remainder is refused before the gateway call.
	calls := gw.refundCalls
	if _, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: money.FromRupees(700)}); !errors.Is(err, ErrRefundExceedsRemaining) {
		t.Fatalf("over-refund: got %v, want ErrRefundExceedsRemaining", err)
	}
	if gw.refundCalls != calls {
		t.Fatalf("gateway called for an over-refund")
	}

	got, err = svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: money.FromRupees(600)})
	if err != nil {
		t.Fatalf("remainder refund: %v", err)
	}
	if got.Status != StatusRefunded {
		t.Fatalf("status = %s, want REFUNDED", got.Status)
	}
	if got.RefundedPaise != got.AmountPaise {
		t.Fatalf("refunded %d != amount %d", got.RefundedPaise.Paise(), got.AmountPaise.Paise())
	}

	// A fully refunded order-linked payment cancels its order.
	var o orders.Order
	if err := db.First(&o, "id = ?", ord.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if o.Status != orders.StatusCancelled {
		t.Fatalf("order = %s, want CANCELLED", o.Status)
	}

	// Nothing left to refund.
	if _, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: money.FromRupees(1)}); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("third refund: got %v, want ErrNotRefundable", err)
	}
}

func TestProcessRefundRejectsUnsettledPayment(t *testing.T) {
	db := setupDB(t, "refund_unsettled")
	svc := newTestService(db, &fakeGateway{})
	p := seedPayment(t, db, Payment{AmountPaise: money.FromRupees(100), Status: StatusCreated})

	if _, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: money.FromRupees(50)}); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("got %v, want ErrNotRefundable", err)
	}
	if _, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: p.ID, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.ProcessRefund(context.Background(), RefundInput{PaymentID: uuid.NewString(), Amount: money.FromRupees(1)}); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("got %v, want ErrPaymentNotFound", err)
	}
}

func TestUpdatePaymentDetailsDemoBypass(t *testing.T) {
	db := setupDB(t, "details_demo")
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	p := seedPayment(t, db, Payment{AmountPaise: money.FromRupees(200), Status: StatusCreated, GatewayOrderID: "order_demo_1"})

	got, err := svc.UpdatePaymentDetails(context.Background(), "pay_demo_42", "order_demo_1")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("resolved wrong payment")
	}
	if got.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got.Status)
	}
	if got.Method == nil || *got.Method != MethodWallet {
		t.Fatalf("method = %v, want WALLET", got.Method)
	}
	if gw.fetchCalls != 0 {
		t.Fatalf("demo payment hit the gateway")
	}

	// Reconciling again resolves by the now-linked gateway payment id.
	again, err := svc.UpdatePaymentDetails(context.Background(), "pay_demo_42", "")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if again.ID != p.ID || again.Status != StatusSuccess {
		t.Fatalf("second reconcile diverged")
	}
}

func TestUpdatePaymentDetailsFetchMapsStatus(t *testing.T) {
	db := setupDB(t, "details_fetch")
	gw := &fakeGateway{payment: GatewayPayment{Status: "captured", Method: "card", CardLast4: "4242", CardNetwork: "Visa"}}
	svc := newTestService(db, gw)
	gpid := "pay_rzp_d1"
	p := seedPayment(t, db, Payment{AmountPaise: money.FromRupees(300), Status: StatusPending, GatewayPaymentID: &gpid})

	got, err := svc.UpdatePaymentDetails(context.Background(), gpid, "")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if got.ID != p.ID || got.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got.Status)
	}
	if got.CardLast4 == nil || *got.CardLast4 != "4242" {
		t.Fatalf("card detail not applied")
	}
}

func TestUpdatePaymentDetailsUnknownPayment(t *testing.T) {
	db := setupDB(t, "details_unknown")
	gw := &fakeGateway{payment: GatewayPayment{OrderID: "order_elsewhere"}}
	svc := newTestService(db, gw)

	_, err := svc.UpdatePaymentDetails(context.Background(), "pay_rzp_unknown", "")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("got %v, want ErrPaymentNotFound", err)
	}
}

func TestTotalPaidByUser(t *testing.T) {
	db := setupDB(t, "total_paid")
	svc := newTestService(db, &fakeGateway{})
	uid := uuid.NewString()

	seedPayment(t, db, Payment{UserID: &uid, AmountPaise: money.FromRupees(500), Status: StatusSuccess})
	seedPayment(t, db, Payment{UserID: &uid, AmountPaise: money.FromRupees(300), Status: StatusSuccess, RefundedPaise: money.FromRupees(100)})
	seedPayment(t, db, Payment{UserID: &uid, AmountPaise: money.FromRupees(900), Status: StatusFailed})

	total, err := svc.TotalPaidByUser(context.Background(), uid)
	if err != nil {
		t.Fatalf("total paid: %v", err)
	}
	if total != money.FromRupees(700) {
		t.Fatalf("total = %d, want 70000", total.Paise())
	}

	empty, err := svc.TotalPaidByUser(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("total paid: %v", err)
	}
	if empty != 0 {
		t.Fatalf("total for unknown user = %d", empty.Paise())
	}
}

func TestHasSuccessfulPayment(t *testing.T) {
	db := setupDB(t, "has_success")
	svc := newTestService(db, &fakeGateway{})
	ord := seedOrder(t, db, orders.StatusConfirmed, money.FromRupees(100))

	ok, err := svc.HasSuccessfulPayment(context.Background(), ord.ID)
	if err != nil || ok {
		t.Fatalf("want no successful payment yet, got ok=%v err=%v", ok, err)
	}

	seedPayment(t, db, Payment{OrderID: &ord.ID, AmountPaise: ord.TotalPaise, Status: StatusSuccess})
	ok, err = svc.HasSuccessfulPayment(context.Background(), ord.ID)
	if err != nil || !ok {
		t.Fatalf("want successful payment, got ok=%v err=%v", ok, err)
	}
}
