package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/veloship/leadrelay/internal/db"
)

func TestRenderQuote(t *testing.T) {
	payload := map[string]string{
		"firstName":      "Ana",
		"lastName":       "Costa",
		"email":          "ana@example.com",
		"origin":         "Lisbon",
		"destination":    "Rotterdam",
		"shippingMethod": "sea",
	}

	msg, err := Render(db.FormQuote, payload)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if msg.Subject != "New Quote Request from Ana Costa" {
		t.Errorf("subject = %q", msg.Subject)
	}

	// Omitted optional fields keep their slot with a placeholder.
	if !strings.Contains(msg.Text, "Phone: Not provided") {
		t.Errorf("text body missing placeholder for phone:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "Company: Not provided") {
		t.Errorf("text body missing placeholder for company:\n%s", msg.Text)
	}

	for _, want := range []string{
		"Name: Ana Costa",
		"Email: ana@example.com",
		"Origin: Lisbon",
		"Destination: Rotterdam",
		"Shipping Method: sea",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text body missing %q:\n%s", want, msg.Text)
		}
	}

	if !strings.Contains(msg.HTML, "New Quote Request") {
		t.Errorf("html body missing heading:\n%s", msg.HTML)
	}
}

func TestRenderDeterministic(t *testing.T) {
	payload := map[string]string{
		"name":    "Jo",
		"email":   "jo@example.com",
		"service": "customs",
	}

	first, err := Render(db.FormConsultation, payload)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	second, err := Render(db.FormConsultation, payload)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if *first != *second {
		t.Errorf("renders differ for identical input:\n%+v\n%+v", first, second)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	payload := map[string]string{
		"name":    "<script>alert(1)</script>",
		"email":   "x@example.com",
		"message": "a < b & c",
	}

	msg, err := Render(db.FormContact, payload)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if strings.Contains(msg.HTML, "<script>") {
		t.Errorf("html body contains unescaped markup:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Errorf("html body missing escaped markup:\n%s", msg.HTML)
	}

	// The text body carries the raw value.
	if !strings.Contains(msg.Text, "a < b & c") {
		t.Errorf("text body altered raw value:\n%s", msg.Text)
	}
}

func TestRenderSubjectFallback(t *testing.T) {
	msg, err := Render(db.FormContact, map[string]string{"email": "x@example.com"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if msg.Subject != "New Contact Message from Website Visitor" {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestRenderUnknownFormType(t *testing.T) {
	_, err := Render("newsletter", map[string]string{})
	if !errors.Is(err, ErrUnknownFormType) {
		t.Fatalf("expected ErrUnknownFormType, got %v", err)
	}
}
