package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oneweb/helpdesk-chat/internal/config"
	"github.com/oneweb/helpdesk-chat/internal/domain"
)

func TestViberParseMessage(t *testing.T) {
	gw, err := NewViber(config.ViberConfig{Token: "t"})
	if err != nil {
		t.Fatalf("NewViber: %v", err)
	}

	tests := []struct {
		name    string
		body    string
		want    RawMessage
		wantErr bool
	}{
		{
			name: "message event",
			body: `{"event":"message","sender":{"id":"abc123","name":"Bob"},"message":{"type":"text","text":"hello"}}`,
			want: RawMessage{PhoneNumber: "abc123", Text: "hello", Name: "Bob"},
		},
		{
			name: "no event field",
			body: `{"sender":{"id":"abc123"},"message":{"text":"hi"}}`,
			want: RawMessage{PhoneNumber: "abc123", Text: "hi"},
		},
		{
			name:    "subscribed event",
			body:    `{"event":"subscribed","sender":{"id":"abc123"}}`,
			wantErr: true,
		},
		{
			name:    "missing sender",
			body:    `{"event":"message","message":{"text":"hi"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/gateways/viber", strings.NewReader(tt.body))
			got, err := gw.ParseMessage(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestViberRequiresToken(t *testing.T) {
	if _, err := NewViber(config.ViberConfig{}); err == nil {
		t.Fatal("NewViber accepted empty token")
	}
}

func TestViberSendMessage(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Viber-Auth-Token")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	gw, err := NewViber(config.ViberConfig{Token: "secret", APIURL: api.URL})
	if err != nil {
		t.Fatalf("NewViber: %v", err)
	}

	msg := &domain.Message{
		Text: "checking now",
		Dialog: &domain.Dialog{
			Customer: &domain.Customer{PhoneNumber: "abc123"},
		},
	}
	if err := gw.SendMessage(context.Background(), msg); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotPath != "/send_message" {
		t.Errorf("path = %q, want /send_message", gotPath)
	}
	if gotToken != "secret" {
		t.Errorf("token header = %q", gotToken)
	}
	if gotBody["receiver"] != "abc123" || gotBody["text"] != "checking now" || gotBody["type"] != "text" {
		t.Errorf("body = %v", gotBody)
	}
}
