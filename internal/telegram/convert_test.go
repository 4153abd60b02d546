package telegram

import (
	"errors"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/tgwatch/internal/monitor"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref      string
		wantID   int64
		wantUser string
		wantErr  bool
	}{
		{"https://t.me/ktroom", 0, "ktroom", false},
		{"http://t.me/ktroom/123", 0, "ktroom", false},
		{"t.me/ktroom?single", 0, "ktroom", false},
		{"https://t.me/c/1234567890/55", -1001234567890, "", false},
		{"https://t.me/+AbCdEf", 0, "", true},
		{"https://t.me/", 0, "", true},
		{"@ktroom", 0, "ktroom", false},
		{"@", 0, "", true},
		{"-1001234567890", -1001234567890, "", false},
		{"KTroom", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			id, user, err := parseRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if id != tt.wantID || user != tt.wantUser {
				t.Errorf("parseRef(%q) = (%d, %q), want (%d, %q)", tt.ref, id, user, tt.wantID, tt.wantUser)
			}
		})
	}
}

func TestPeerKind(t *testing.T) {
	tests := map[string]monitor.PeerKind{
		telego.ChatTypeChannel:    monitor.KindChannel,
		telego.ChatTypeSupergroup: monitor.KindChannel,
		telego.ChatTypeGroup:      monitor.KindGroup,
		telego.ChatTypePrivate:    monitor.KindUser,
	}
	for in, want := range tests {
		if got := peerKind(in); got != want {
			t.Errorf("peerKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessageText(t *testing.T) {
	if got := messageText(&telego.Message{Text: "hi", Caption: "cap"}); got != "hi" {
		t.Errorf("text = %q", got)
	}
	if got := messageText(&telego.Message{Caption: "cap"}); got != "cap" {
		t.Errorf("caption = %q", got)
	}
}

func TestTelegoPeer(t *testing.T) {
	p := telegoPeer(telego.Chat{ID: 7, Type: telego.ChatTypePrivate, FirstName: "Ann", LastName: "Lee"})
	if p.Title != "Ann Lee" || p.Kind != monitor.KindUser {
		t.Errorf("peer = %+v", p)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(errors.New("telego: getChat: api: 400 \"Bad Request: chat not found\"")) {
		t.Error("expected not found")
	}
	if isNotFound(errors.New("timeout")) {
		t.Error("unexpected not found")
	}
}
