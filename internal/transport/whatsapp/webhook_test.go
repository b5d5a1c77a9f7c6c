package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/lovebot/internal/domain/model"
)

type fakeValidator struct {
	ok     bool
	url    string
	params map[string]string
}

func (f *fakeValidator) Validate(u string, params map[string]string, _ string) bool {
	f.url = u
	f.params = params
	return f.ok
}

func newRouter(tr *Transport) http.Handler {
	r := chi.NewRouter()
	tr.Routes(r)
	return r
}

func subscribe(tr *Transport) <-chan model.Message {
	ch := make(chan model.Message, 1)
	tr.Subscribe(func(_ context.Context, msg model.Message) { ch <- msg })
	return ch
}

func receive(t *testing.T, ch <-chan model.Message) model.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
		return model.Message{}
	}
}

func postForm(h http.Handler, form url.Values, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTwilioWebhookDirectMessage(t *testing.T) {
	tr := newTransport(testConfig(), &fakeCreator{}, nil, nil)
	got := subscribe(tr)

	rec := postForm(newRouter(tr), url.Values{
		"From":       {"whatsapp:+15551112222"},
		"Body":       {"hello there"},
		"MessageSid": {"SM1"},
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response>") {
		t.Errorf("body = %q, want TwiML", rec.Body.String())
	}

	msg := receive(t, got)
	if msg.SenderID != "+15551112222" {
		t.Errorf("SenderID = %q", msg.SenderID)
	}
	if msg.ConversationID != "dm:+15551112222" {
		t.Errorf("ConversationID = %q", msg.ConversationID)
	}
	if msg.Content != "hello there" || msg.ExternalID != "SM1" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestTwilioWebhookGroupMessage(t *testing.T) {
	tr := newTransport(testConfig(), &fakeCreator{}, nil, nil)
	got := subscribe(tr)

	postForm(newRouter(tr), url.Values{
		"From":    {"whatsapp:+1555"},
		"Body":    {"hi all"},
		"GroupId": {"group-42"},
	}, nil)

	if msg := receive(t, got); msg.ConversationID != "group-42" {
		t.Errorf("ConversationID = %q, want group-42", msg.ConversationID)
	}
}

func TestTwilioWebhookMissingSender(t *testing.T) {
	tr := newTransport(testConfig(), &fakeCreator{}, nil, nil)
	rec := postForm(newRouter(tr), url.Values{"Body": {"orphan"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTwilioWebhookSignature(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+1555"}, "Body": {"signed"}}

	t.Run("rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.ValidateSignature = true
		tr := newTransport(cfg, &fakeCreator{}, &fakeValidator{ok: false}, nil)

		rec := postForm(newRouter(tr), form, http.Header{signatureHeader: {"bad"}})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		cfg := testConfig()
		cfg.ValidateSignature = true
		tr := newTransport(cfg, &fakeCreator{}, &fakeValidator{ok: true}, nil)

		rec := postForm(newRouter(tr), form, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		cfg := testConfig()
		cfg.ValidateSignature = true
		cfg.PublicURL = "https://bot.example.com/webhook/whatsapp"
		v := &fakeValidator{ok: true}
		tr := newTransport(cfg, &fakeCreator{}, v, nil)
		got := subscribe(tr)

		rec := postForm(newRouter(tr), form, http.Header{signatureHeader: {"good"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		receive(t, got)

		if v.url != cfg.PublicURL {
			t.Errorf("validated url = %q, want %q", v.url, cfg.PublicURL)
		}
		if v.params["Body"] != "signed" {
			t.Errorf("validated params = %v", v.params)
		}
	})
}

func TestJSONWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		subscribe  bool
		wantStatus int
		wantConv   string
	}{
		{
			name:       "group payload",
			body:       `{"from":"+1555","group_id":"g1","body":"hey","id":"x1"}`,
			subscribe:  true,
			wantStatus: http.StatusAccepted,
			wantConv:   "g1",
		},
		{
			name:       "direct payload",
			body:       `{"from":"whatsapp:+1555","body":"hey"}`,
			subscribe:  true,
			wantStatus: http.StatusAccepted,
			wantConv:   "dm:+1555",
		},
		{name: "invalid json", body: `{"from":`, subscribe: true, wantStatus: http.StatusBadRequest},
		{name: "missing from", body: `{"body":"x"}`, subscribe: true, wantStatus: http.StatusBadRequest},
		{name: "no subscriber", body: `{"from":"+1","body":"x"}`, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransport(testConfig(), &fakeCreator{}, nil, nil)
			var got <-chan model.Message
			if tt.subscribe {
				got = subscribe(tr)
			}

			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			newRouter(tr).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantConv != "" {
				if msg := receive(t, got); msg.ConversationID != tt.wantConv {
					t.Errorf("ConversationID = %q, want %q", msg.ConversationID, tt.wantConv)
				}
			}
		})
	}
}
