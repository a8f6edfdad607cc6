package validate

import "testing"

func TestUserID(t *testing.T) {
	if err := UserID("caregiver_42"); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	if err := UserID(""); err == nil {
		t.Fatal("empty id accepted")
	}
	if err := UserID("has space"); err == nil {
		t.Fatal("id with space accepted")
	}
}

func TestName(t *testing.T) {
	for _, ok := range []string{"Grandma Rose", "O'Brien", "Mary-Ann"} {
		if err := Name(ok); err != nil {
			t.Fatalf("valid name %q rejected: %v", ok, err)
		}
	}
	if err := Name(""); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := Name("bad\nname"); err == nil {
		t.Fatal("name with newline accepted")
	}
}
