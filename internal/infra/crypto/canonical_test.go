package crypto

import "testing"

func TestCanonicalizeSortsKeys(t *testing.T) {
	got, err := Canonicalize([]byte(`{"b":1,"a":{"z":true,"y":"s"}}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"y":"s","z":true},"b":1}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeIsInsensitiveToWhitespace(t *testing.T) {
	a, err := Canonicalize([]byte(`{"x": [1, 2, 3],  "y": null}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := Canonicalize([]byte(`{"y":null,"x":[1,2,3]}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("equivalent documents canonicalize differently: %s vs %s", a, b)
	}
}

func TestCanonicalizePreservesNumberText(t *testing.T) {
	got, err := Canonicalize([]byte(`{"n":1.50,"m":100000000000000000001}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"m":100000000000000000001,"n":1.50}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeRejectsTrailingData(t *testing.T) {
	if _, err := Canonicalize([]byte(`{"a":1} extra`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestCanonicalizeRejectsInvalidJSON(t *testing.T) {
	if _, err := Canonicalize([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
