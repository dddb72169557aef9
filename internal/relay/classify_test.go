package relay

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		mime string
		want Kind
	}{
		{"image/png", KindImage},
		{"image/jpeg", KindImage},
		{"image/svg+xml", KindImage},
		{"text/plain", KindTextLike},
		{"text/x-go; charset=utf-8", KindTextLike},
		{"application/json", KindTextLike},
		{"application/ld+json", KindTextLike},
		{"application/javascript", KindTextLike},
		{"application/xml", KindTextLike},
		{"application/pdf", KindUnsupported},
		{"application/octet-stream", KindUnsupported},
		{"", KindUnsupported},
		{"Image/PNG", KindUnsupported},
		{"application/JSON", KindUnsupported},
		{"TEXT/plain", KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := Classify(tt.mime); got != tt.want {
				t.Fatalf("Classify(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}
