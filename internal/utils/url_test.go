package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestDomainMatch(t *testing.T) {
	allow := map[string]struct{}{"good.com": {}}
	block := map[string]struct{}{"bad.com": {}}
	allowed, blocked := DomainMatch("good.com", allow, block)
	if !allowed || blocked {
		t.Fatalf("expected allow only")
	}
	allowed, blocked = DomainMatch("bad.com", allow, block)
	if allowed || !blocked {
		t.Fatalf("expected block only")
	}
}

func TestExtractInviteCodes(t *testing.T) {
	content := "join discord.gg/abc123 or https://discord.com/invite/abc123 and discordapp.com/invite/x-y_z"
	codes := ExtractInviteCodes(content)
	if len(codes) != 2 || codes[0] != "abc123" || codes[1] != "x-y_z" {
		t.Fatalf("unexpected invite codes: %v", codes)
	}
	if codes := ExtractInviteCodes("discord.gg/a"); len(codes) != 0 {
		t.Fatalf("single character codes are not invites: %v", codes)
	}
}

func TestExtractBotInvites(t *testing.T) {
	content := "https://discord.com/oauth2/authorize?client_id=123456789012345678&scope=bot " +
		"https://discord.com/application-directory/223456789012345678"
	ids := ExtractBotInvites(content)
	if len(ids) != 2 || ids[0] != "123456789012345678" || ids[1] != "223456789012345678" {
		t.Fatalf("unexpected bot ids: %v", ids)
	}
}

func TestHostMatches(t *testing.T) {
	if !HostMatches("www.youtube.com", "youtube.com") {
		t.Fatalf("expected subdomain match")
	}
	if HostMatches("notyoutube.com", "youtube.com") {
		t.Fatalf("unexpected suffix match")
	}
}
