package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Trigger("transaction:deleted", map[string]int64{"id": 42}).
		TriggerSuccessNotification("Saved").
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"transaction:deleted", "show-notification"} {
		if _, ok := got[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}
	if string(got["transaction:deleted"]) != `{"id":42}` {
		t.Errorf("transaction:deleted = %s", got["transaction:deleted"])
	}
	if !strings.Contains(string(got["show-notification"]), `"type":"success"`) {
		t.Errorf("show-notification = %s", got["show-notification"])
	}
}

func TestHTMXResponseBuilder_NoTriggerHeaderWhenEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/transactions").Write(w)

	if _, ok := w.Header()["Hx-Trigger"]; ok {
		t.Error("unexpected HX-Trigger header")
	}
	if got := w.Header().Get("HX-Redirect"); got != "/transactions" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusTooManyRequests, "<b>slow down</b>").Write(w)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<b>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}
