package sharing

import "testing"

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken failed: %v", err)
		}
		if tok == "" {
			t.Fatal("expected non-empty token")
		}
		if seen[tok] {
			t.Errorf("duplicate token: %s", tok)
		}
		seen[tok] = true
	}
}

func TestURLDefaultBase(t *testing.T) {
	url := URL("", "abc123")
	want := "https://steer.dev/share/abc123"
	if url != want {
		t.Errorf("expected %s, got %s", want, url)
	}
}

func TestURLCustomBase(t *testing.T) {
	url := URL("https://example.com/s", "abc123")
	want := "https://example.com/s/abc123"
	if url != want {
		t.Errorf("expected %s, got %s", want, url)
	}
}
