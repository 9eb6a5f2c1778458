package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("pw123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("pw123456", encoded) {
		t.Fatal("expected password to verify")
	}
	if Verify("pw1234567", encoded) {
		t.Fatal("expected wrong password to fail")
	}
	if NeedsRehash(encoded) {
		t.Fatal("fresh hash should not need rehash")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1$c2FsdA$aGFzaA",
	} {
		if Verify("pw123456", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
		if !NeedsRehash(encoded) {
			t.Fatalf("expected %q to need rehash", encoded)
		}
	}
}

func TestWeak(t *testing.T) {
	if !Weak("short") {
		t.Fatal("expected short password to be weak")
	}
	if Weak("pw123456") {
		t.Fatal("expected 8 character password to be accepted")
	}
}
