package scanner

import "testing"

func TestScanUintField(t *testing.T) {
	payload := []byte(`{"cmd":"breaker_reset","instrument": 7,"price":10000}`)

	v, ok := ScanUintField(payload, []byte(`"instrument"`))
	if !ok || v != 7 {
		t.Fatalf("instrument = %d, %v", v, ok)
	}
	v, ok = ScanUintField(payload, []byte(`"price"`))
	if !ok || v != 10000 {
		t.Fatalf("price = %d, %v", v, ok)
	}
	if _, ok := ScanUintField(payload, []byte(`"missing"`)); ok {
		t.Fatal("expected missing key to fail")
	}
	if _, ok := ScanUintField([]byte(`{"n":"x"}`), []byte(`"n"`)); ok {
		t.Fatal("expected non-digit value to fail")
	}
	if _, ok := ScanUintField([]byte(`{"n":`), []byte(`"n"`)); ok {
		t.Fatal("expected truncated payload to fail")
	}
}

func TestScanIntField(t *testing.T) {
	payload := []byte(`{"price":-2500,"ref": 10050}`)

	v, ok := ScanIntField(payload, []byte(`"price"`))
	if !ok || v != -2500 {
		t.Fatalf("price = %d, %v", v, ok)
	}
	v, ok = ScanIntField(payload, []byte(`"ref"`))
	if !ok || v != 10050 {
		t.Fatalf("ref = %d, %v", v, ok)
	}
	if _, ok := ScanIntField([]byte(`{"n":-}`), []byte(`"n"`)); ok {
		t.Fatal("expected bare minus to fail")
	}
	if _, ok := ScanIntField([]byte(`{"n":-`), []byte(`"n"`)); ok {
		t.Fatal("expected truncated negative to fail")
	}
}

func TestScanStringField(t *testing.T) {
	payload := []byte(`{"cmd": "kill","mode":"on"}`)

	v, ok := ScanStringField(payload, []byte(`"cmd"`))
	if !ok || string(v) != "kill" {
		t.Fatalf("cmd = %q, %v", v, ok)
	}
	v, ok = ScanStringField(payload, []byte(`"mode"`))
	if !ok || string(v) != "on" {
		t.Fatalf("mode = %q, %v", v, ok)
	}
	if _, ok := ScanStringField([]byte(`{"cmd":unquoted}`), []byte(`"cmd"`)); ok {
		t.Fatal("expected unquoted value to fail")
	}
	if _, ok := ScanStringField([]byte(`{"cmd":"open`), []byte(`"cmd"`)); ok {
		t.Fatal("expected unterminated string to fail")
	}
}

func TestIndexOf(t *testing.T) {
	payload := []byte("abcabc")
	if got := IndexOf(payload, []byte("cab")); got != 2 {
		t.Fatalf("IndexOf = %d, want 2", got)
	}
	if got := IndexOf(payload, []byte("zz")); got != -1 {
		t.Fatalf("IndexOf = %d, want -1", got)
	}
	if got := IndexOf(payload, nil); got != -1 {
		t.Fatalf("IndexOf empty key = %d, want -1", got)
	}
	if got := IndexOf([]byte("ab"), []byte("abc")); got != -1 {
		t.Fatalf("IndexOf short payload = %d, want -1", got)
	}
}

func TestBytesContains(t *testing.T) {
	if !BytesContains([]byte(`{"cmd":"status"}`), []byte(`"status"`)) {
		t.Fatal("expected needle to be found")
	}
	if BytesContains([]byte("short"), []byte("longer needle")) {
		t.Fatal("expected long needle to miss")
	}
	if !BytesContains([]byte("anything"), nil) {
		t.Fatal("empty needle should match")
	}
}

func TestIsSpace(t *testing.T) {
	for _, b := range []byte{' ', '\t', '\n', '\r'} {
		if !IsSpace(b) {
			t.Fatalf("IsSpace(%q) = false", b)
		}
	}
	if IsSpace('x') || IsSpace('0') {
		t.Fatal("non-space byte reported as space")
	}
}
