package logutil

import (
	"testing"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"Authorization", "password", "E2E_PASSWORD", "session_id", "api-key", "X-Access-Token", "Cookie", "aws_access_key_id"} {
		if !IsSensitiveLogField(key) {
			t.Errorf("expected %q to be sensitive", key)
		}
	}
	for _, key := range []string{"email", "credits", "path", "attempt"} {
		if IsSensitiveLogField(key) {
			t.Errorf("expected %q to be loggable", key)
		}
	}
}

func testRedactValue_NeverLeaksSensitive(t *rapid.T) {
	value := rapid.StringMatching(`[a-zA-Z0-9!]{1,40}`).Draw(t, "value")
	key := rapid.SampledFrom([]string{"password", "token", "client_secret", "session"}).Draw(t, "key")
	if got := RedactValue(key, value); got != "[REDACTED]" {
		t.Fatalf("RedactValue(%q) leaked %q", key, got)
	}
	if got := RedactValue("credits", value); got != value {
		t.Fatalf("RedactValue(credits) altered value: got=%q want=%q", got, value)
	}
}

func TestRedactValue_NeverLeaksSensitive(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRedactValue_NeverLeaksSensitive)
}

func testMaskEmail_HidesLocalPart(t *rapid.T) {
	local := rapid.StringMatching(`[a-z][a-z0-9.]{1,20}`).Draw(t, "local")
	domain := rapid.StringMatching(`[a-z]{2,10}\.[a-z]{2,4}`).Draw(t, "domain")

	masked := MaskEmail(local + "@" + domain)
	if masked != local[:1]+"***@"+domain {
		t.Fatalf("MaskEmail mismatch: got=%q", masked)
	}
}

func TestMaskEmail_HidesLocalPart(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testMaskEmail_HidesLocalPart)
}

func TestMaskEmail_Degenerate(t *testing.T) {
	t.Parallel()
	if got := MaskEmail(""); got != "" {
		t.Fatalf("empty email: got %q", got)
	}
	if got := MaskEmail("no-at-sign"); got != "***" {
		t.Fatalf("missing @: got %q", got)
	}
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()
	if got := TruncateForLog("  line1\nline2  ", 0); got != `line1\nline2` {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := TruncateForLog("abcdefgh", 3); got != "abc... [truncated]" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateForLog("   ", 3); got != "" {
		t.Fatalf("blank input should be empty, got %q", got)
	}
}
