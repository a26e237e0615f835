package payment

import (
	"testing"
	"time"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	secret := "whsec_test"

	valid := SignWebhookPayload(payload, secret, time.Now())
	if !VerifyWebhookSignature(payload, valid, secret) {
		t.Fatalf("expected valid signature to verify")
	}

	if VerifyWebhookSignature(payload, valid, "whsec_other") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature([]byte(`{"tampered":true}`), valid, secret) {
		t.Fatalf("expected tampered payload to fail")
	}
	if VerifyWebhookSignature(payload, "t=notanumber,v1=deadbeef", secret) {
		t.Fatalf("expected malformed timestamp to fail")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected empty header to fail")
	}
}

func TestVerifyWebhookSignatureTolerance(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	secret := "whsec_test"

	stale := SignWebhookPayload(payload, secret, time.Now().Add(-SignatureTolerance-time.Minute))
	if VerifyWebhookSignature(payload, stale, secret) {
		t.Fatalf("expected stale timestamp to fail")
	}

	recent := SignWebhookPayload(payload, secret, time.Now().Add(-time.Minute))
	if !VerifyWebhookSignature(payload, recent, secret) {
		t.Fatalf("expected recent timestamp to verify")
	}
}

func TestVerifyAndParse(t *testing.T) {
	payload := []byte(`{"id":"evt_3","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":12345,"status":"succeeded","metadata":{"bookingId":"BOOK-1"}}}}`)

	// Configured secret: bad signature rejected, good one verified.
	c := &Client{WebhookSecret: "whsec_test"}
	if _, _, err := c.VerifyAndParse(payload, "t=1,v1=deadbeef"); err != ErrSignature {
		t.Fatalf("expected ErrSignature, got %v", err)
	}

	sig := SignWebhookPayload(payload, "whsec_test", time.Now())
	ev, verified, err := c.VerifyAndParse(payload, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verified {
		t.Fatalf("expected verified=true")
	}
	if ev.Type != EventPaymentSucceeded || ev.Data.Object.Metadata["bookingId"] != "BOOK-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// Unconfigured secret: verification skipped, parse still happens.
	open := &Client{}
	ev, verified, err = open.VerifyAndParse(payload, "")
	if err != nil || verified || ev.ID != "evt_3" {
		t.Fatalf("expected skip-if-unconfigured parse, got ev=%v verified=%v err=%v", ev, verified, err)
	}

	// Garbage payload is a parse error regardless of secret config.
	if _, _, err := open.VerifyAndParse([]byte("not json"), ""); err == nil {
		t.Fatalf("expected parse error")
	}
}
