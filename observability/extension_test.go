package observability_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/observability"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	storemem "github.com/xraph/contenthub/store/memory"
)

type fakeFactory struct {
	mu     sync.Mutex
	values map[string]float64
}

type fakeMetric struct {
	f    *fakeFactory
	name string
}

func (m fakeMetric) Inc()              { m.Add(1) }
func (m fakeMetric) Observe(v float64) { m.Add(v) }
func (m fakeMetric) Add(v float64) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()
	m.f.values[m.name] += v
}

func (f *fakeFactory) Counter(name string) observability.Counter {
	return fakeMetric{f: f, name: name}
}

func (f *fakeFactory) Histogram(name string) observability.Histogram {
	return fakeMetric{f: f, name: name}
}

func (f *fakeFactory) get(name string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

func TestMetricsFollowLedger(t *testing.T) {
	f := &fakeFactory{values: make(map[string]float64)}
	l := contenthub.New(storemem.New(), contenthub.WithPlugin(observability.NewMetricsExtension(f)))

	ctx := context.Background()
	op := caller.WithAddress(ctx, "0xop")
	alice := caller.WithAddress(ctx, "0xalice")
	bob := caller.WithAddress(ctx, "0xbob")

	if _, err := l.InitializePlatform(op, platform.Config{FeePercent: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.UploadContent(alice, content.Upload{ContentID: "a", PayloadRef: "ipfs://a", ContentType: content.TypeImage, ViewPrice: 10, OwnershipPrice: 150}); err != nil {
		t.Fatal(err)
	}
	_, _ = l.PayToView(bob, "a", 9)
	_, _ = l.PayToView(bob, "missing", 10)
	if _, err := l.PayToView(bob, "a", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PayToOwn(bob, "a", 150); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want float64
	}{
		{"contenthub.platform.initialized", 1},
		{"contenthub.content.uploaded", 1},
		{"contenthub.payment.view", 1},
		{"contenthub.payment.own", 1},
		{"contenthub.payment.amount", 160},
		{"contenthub.payment.fees", 7},
		{"contenthub.payment.creator_payouts", 153},
		{"contenthub.payment.rejected", 2},
		{"contenthub.access.granted", 1},
		{"contenthub.ownership.minted", 1},
	}
	for _, tt := range tests {
		if got := f.get(tt.name); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPaymentFailureClassification(t *testing.T) {
	tests := []struct {
		err    error
		metric string
	}{
		{fmt.Errorf("%w: refused", contenthub.ErrTransferFailed), "contenthub.payment.transfer_failed"},
		{contenthub.ErrInsufficientPayment, "contenthub.payment.rejected"},
		{fmt.Errorf("%w: broke", contenthub.ErrInsufficientFunds), "contenthub.payment.rejected"},
		{&contenthub.ReversalError{TransferRef: "x", Commit: contenthub.ErrTransactionFailed, Reverse: errors.New("offline")}, "contenthub.payment.reversal_failed"},
		{contenthub.ValidationError{Field: "amount", Message: "negative"}, "contenthub.payment.rejected"},
		{errors.New("disk full"), "contenthub.store.errors"},
	}
	for _, tt := range tests {
		f := &fakeFactory{values: make(map[string]float64)}
		m := observability.NewMetricsExtension(f)
		_ = m.OnPaymentFailed(context.Background(), "a", payment.KindView, "0xbob", 1, tt.err)
		if f.get(tt.metric) != 1 {
			t.Errorf("%v: %s not incremented", tt.err, tt.metric)
		}
	}
}

func TestPrometheusFactory(t *testing.T) {
	f := observability.NewPrometheusFactory()
	m := observability.NewMetricsExtension(f)
	m.ContentUploaded.Inc()

	if f.Counter("contenthub.content.uploaded") != m.ContentUploaded {
		t.Error("same name should return the same counter")
	}

	rec := httptest.NewRecorder()
	f.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "contenthub_content_uploaded 1") {
		t.Errorf("exposition missing counter:\n%s", rec.Body.String())
	}
}
