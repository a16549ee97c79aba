package logger

import "testing"

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "true")

	out := sanitizeKVs([]interface{}{
		"access_token", "abc",
		"class_id", "c1",
		"user_id", "u-42",
		"raw", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1LTQyIn0.sig",
	})
	if len(out) != 8 {
		t.Fatalf("len: want=8 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("access_token: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "c1" {
		t.Fatalf("class_id: want=c1 got=%v", out[3])
	}
	if s, _ := out[5].(string); len(s) != len("hash:")+12 {
		t.Fatalf("user_id: want hashed value got=%v", out[5])
	}
	if out[7] != "[REDACTED]" {
		t.Fatalf("jwt-looking value: want=[REDACTED] got=%v", out[7])
	}
}

func TestSanitizeKVsKeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"course_id", "c1", "orphan"})
	if len(out) != 3 || out[2] != "orphan" {
		t.Fatalf("dangling key: got=%v", out)
	}
}
