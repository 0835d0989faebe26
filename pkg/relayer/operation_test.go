package relayer

import "testing"

func TestOperation(t *testing.T) {
	tests := []struct {
		op    Operation
		valid bool
		path  string
	}{
		{OpInputProof, true, "/v2/input-proof"},
		{OpPublicDecrypt, true, "/v2/public-decrypt"},
		{OpUserDecrypt, true, "/v2/user-decrypt"},
		{OpKeyURL, true, "/v2/keyurl"},
		{Operation("bogus"), false, "/v2/bogus"},
		{Operation(""), false, "/v2/"},
	}
	for _, tt := range tests {
		if got := tt.op.Valid(); got != tt.valid {
			t.Errorf("Operation(%q).Valid() = %v, want %v", tt.op, got, tt.valid)
		}
		if got := tt.op.Path(); got != tt.path {
			t.Errorf("Operation(%q).Path() = %q, want %q", tt.op, got, tt.path)
		}
	}
}
