package randx

import (
	"strings"
	"testing"
)

func TestJoinCodeWidthAndCharset(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 200; i++ {
		code, err := JoinCode()
		if err != nil {
			t.Fatalf("generate join code: %v", err)
		}

		if len(code) != JoinCodeLength {
			t.Fatalf("expected code of width %d, got %q", JoinCodeLength, code)
		}

		for _, char := range code {
			if !strings.ContainsRune(Base62Chars, char) {
				t.Fatalf("code %q contains character outside Base62 set", code)
			}
		}

		if !IsValidJoinCode(code) {
			t.Fatalf("generated code %q failed its own validation", code)
		}

		seen[code] = struct{}{}
	}

	// 200 draws from a 62^6 space colliding down to a handful would mean the
	// generator is broken, not unlucky.
	if len(seen) < 190 {
		t.Fatalf("expected near-unique codes, got %d distinct of 200", len(seen))
	}
}

func TestIsValidJoinCodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"", "abc", "abcdefg", "ab cd1", "abc-12", "ABCDE!"} {
		if IsValidJoinCode(code) {
			t.Errorf("expected %q to be rejected", code)
		}
	}
}
