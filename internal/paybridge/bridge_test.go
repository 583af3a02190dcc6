package paybridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/toast"
)

type recordingOutcome struct {
	mu        sync.Mutex
	succeeded []api.PaymentConfirmation
	dismissed int
	verifyErr error
}

func (o *recordingOutcome) PaymentSucceeded(_ context.Context, c api.PaymentConfirmation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.succeeded = append(o.succeeded, c)
	return o.verifyErr
}

func (o *recordingOutcome) PaymentDismissed(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dismissed++
	return nil
}

func (o *recordingOutcome) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.succeeded), o.dismissed
}

func startBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := Start(Options{ScriptURL: "https://payments.example/checkout.js"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func options() checkout.PaymentOptions {
	return checkout.PaymentOptions{
		Key:             "rzp_test_key",
		Amount:          35000,
		Currency:        "INR",
		Name:            "ShopAura",
		Description:     "Order #SA-1001",
		ProviderOrderID: "order_abc",
		Prefill:         checkout.Prefill{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"},
		ThemeColor:      "#4F46E5",
	}
}

func openSession(t *testing.T, b *Bridge, out checkout.Outcome) string {
	t.Helper()
	require.NoError(t, b.Open(context.Background(), options(), out))
	ids := b.Sessions()
	require.Len(t, ids, 1)
	return ids[0]
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const successBody = `{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"sig_order_abc_pay_1"}`

func TestOpenAnnouncesPage(t *testing.T) {
	toasts := &toast.Queue{}
	var opened []string
	b, err := Start(Options{
		Toasts:  toasts,
		OpenURL: func(u string) error { opened = append(opened, u); return errors.New("no browser") },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	id := openSession(t, b, &recordingOutcome{})
	latest, ok := toasts.Latest()
	require.True(t, ok)
	assert.Equal(t, toast.LevelInfo, latest.Level)
	assert.Contains(t, latest.Text, b.PageURL(id))
	assert.Equal(t, []string{b.PageURL(id)}, opened)
}

func TestOpenRequiresOutcomeAndOrder(t *testing.T) {
	b := startBridge(t)
	require.Error(t, b.Open(context.Background(), options(), nil))
	opts := options()
	opts.ProviderOrderID = ""
	require.Error(t, b.Open(context.Background(), opts, &recordingOutcome{}))
	assert.Empty(t, b.Sessions())
}

func TestPageEmbedsOptions(t *testing.T) {
	b := startBridge(t)
	id := openSession(t, b, &recordingOutcome{})

	resp, err := http.Get(b.PageURL(id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)

	assert.Contains(t, page, "https://payments.example/checkout.js")
	assert.Contains(t, page, `"order_id":"order_abc"`)
	assert.Contains(t, page, `"amount":35000`)
	assert.Contains(t, page, "Order #SA-1001")
	assert.Contains(t, page, "/callback/"+id+"/success")

	missing, err := http.Get(b.URL() + "/pay/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestSuccessIsRelayedOnce(t *testing.T) {
	b := startBridge(t)
	out := &recordingOutcome{}
	id := openSession(t, b, out)

	status, res := post(t, b.URL()+"/callback/"+id+"/success", successBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, res["success"])

	status, _ = post(t, b.URL()+"/callback/"+id+"/success", successBody)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = post(t, b.URL()+"/callback/"+id+"/dismiss", `{}`)
	assert.Equal(t, http.StatusConflict, status)

	succeeded, dismissed := out.counts()
	assert.Equal(t, 1, succeeded)
	assert.Zero(t, dismissed)
	assert.Equal(t, "pay_1", out.succeeded[0].PaymentID)
	assert.Equal(t, "order_abc", out.succeeded[0].ProviderOrderID)
	assert.Empty(t, b.Sessions())

	page, err := http.Get(b.PageURL(id))
	require.NoError(t, err)
	page.Body.Close()
	assert.Equal(t, http.StatusGone, page.StatusCode)
}

func TestVerificationFailureIsReported(t *testing.T) {
	b := startBridge(t)
	out := &recordingOutcome{verifyErr: errors.New("bad signature")}
	id := openSession(t, b, out)

	status, res := post(t, b.URL()+"/callback/"+id+"/success", successBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "Payment verification failed", res["message"])
}

func TestMalformedSuccessKeepsSessionOpen(t *testing.T) {
	b := startBridge(t)
	out := &recordingOutcome{}
	id := openSession(t, b, out)

	status, _ := post(t, b.URL()+"/callback/"+id+"/success", `{"razorpay_order_id":"order_abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, b.Sessions(), 1)

	status, _ = post(t, b.URL()+"/callback/"+id+"/dismiss", `{}`)
	assert.Equal(t, http.StatusOK, status)
	succeeded, dismissed := out.counts()
	assert.Zero(t, succeeded)
	assert.Equal(t, 1, dismissed)
}

func TestCancelWithdrawsOpenSessions(t *testing.T) {
	b := startBridge(t)
	out := &recordingOutcome{}
	id := openSession(t, b, out)

	b.Cancel()
	assert.Empty(t, b.Sessions())

	status, _ := post(t, b.URL()+"/callback/"+id+"/success", successBody)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = post(t, b.URL()+"/callback/"+id+"/dismiss", `{}`)
	assert.Equal(t, http.StatusConflict, status)
	succeeded, dismissed := out.counts()
	assert.Zero(t, succeeded)
	assert.Zero(t, dismissed)

	page, err := http.Get(b.PageURL(id))
	require.NoError(t, err)
	page.Body.Close()
	assert.Equal(t, http.StatusGone, page.StatusCode)
}
