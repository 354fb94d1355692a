package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Number
		wantErr bool
	}{
		{"e164", "+251911223344", "+251911223344", false},
		{"bare country code", "251911223344", "+251911223344", false},
		{"local zero prefix", "0911223344", "+251911223344", false},
		{"subscriber only", "911223344", "+251911223344", false},
		{"safaricom prefix", "0711223344", "+251711223344", false},
		{"spaces and dashes", "+251 91-122-3344", "+251911223344", false},
		{"too short", "09112233", "", true},
		{"too long", "09112233445", "", true},
		{"landline prefix", "0111223344", "", true},
		{"foreign number", "+14155551234", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumberIsMobile(t *testing.T) {
	if !Number("+251911223344").IsMobile() {
		t.Error("9-prefix number should be mobile")
	}
	if !Number("+251711223344").IsMobile() {
		t.Error("7-prefix number should be mobile")
	}
	if Number("+251111223344").IsMobile() {
		t.Error("landline should not be mobile")
	}
}

func TestNumberLocal(t *testing.T) {
	if got := Number("+251911223344").Local(); got != "0911223344" {
		t.Errorf("Local() = %q, want %q", got, "0911223344")
	}
}
