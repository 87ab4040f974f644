package toss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Confirm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/confirm" {
			t.Errorf("path = %s, want /v1/payments/confirm", r.URL.Path)
		}
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk_abc:"))
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("Authorization = %q, want %q", got, wantAuth)
		}
		var req ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OrderID != "CHZ_res-1" || req.Amount != 50000 {
			t.Errorf("unexpected confirm request: %+v", req)
		}
		json.NewEncoder(w).Encode(Payment{
			PaymentKey:  req.PaymentKey,
			OrderID:     req.OrderID,
			Status:      StatusDone,
			TotalAmount: req.Amount,
		})
	}))
	defer srv.Close()

	c := NewClient("test_sk_abc", srv.URL+"/v1", nil)
	p, err := c.Confirm(context.Background(), &ConfirmRequest{
		PaymentKey: "pk_1",
		OrderID:    "CHZ_res-1",
		Amount:     50000,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if p.Status != StatusDone {
		t.Errorf("status = %s, want %s", p.Status, StatusDone)
	}
}

func TestClient_Confirm_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Error{Code: "INVALID_PAYMENT_KEY", Message: "존재하지 않는 결제입니다."})
	}))
	defer srv.Close()

	c := NewClient("test_sk_abc", srv.URL+"/v1", nil)
	_, err := c.Confirm(context.Background(), &ConfirmRequest{PaymentKey: "bogus", OrderID: "CHZ_x", Amount: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Code != "INVALID_PAYMENT_KEY" {
		t.Errorf("code = %s, want INVALID_PAYMENT_KEY", apiErr.Code)
	}
}

func TestClient_Cancel_IdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pk_1/cancel" {
			t.Errorf("path = %s, want /v1/payments/pk_1/cancel", r.URL.Path)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "idem-123" {
			t.Errorf("Idempotency-Key = %q, want idem-123", got)
		}
		json.NewEncoder(w).Encode(Payment{PaymentKey: "pk_1", Status: StatusCanceled, BalanceAmount: 0})
	}))
	defer srv.Close()

	c := NewClient("test_sk_abc", srv.URL+"/v1", nil)
	p, err := c.Cancel(context.Background(), "pk_1", &CancelRequest{CancelReason: "고객 요청"}, "idem-123")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if p.Status != StatusCanceled || p.BalanceAmount != 0 {
		t.Errorf("unexpected cancel result: %+v", p)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewClient("test_sk_abc", srv.URL+"/v1", nil)
	_, err := c.Get(context.Background(), "pk_1")
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Code != "UNKNOWN" {
		t.Errorf("code = %s, want UNKNOWN", apiErr.Code)
	}
}
