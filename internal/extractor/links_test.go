package extractor

import "testing"

func TestFirstLink(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantOK  bool
	}{
		{
			name:    "single valid anchor",
			content: `<p>See <a href='https://example.com/x'>this</a></p>`,
			want:    "https://example.com/x",
			wantOK:  true,
		},
		{
			name:    "first of several anchors wins",
			content: `<a href="https://first.example.com/">a</a><a href="https://second.example.com/">b</a>`,
			want:    "https://first.example.com/",
			wantOK:  true,
		},
		{
			name:    "no anchors",
			content: `<p>just text</p>`,
			wantOK:  false,
		},
		{
			name:    "invalid first link is not retried against later anchors",
			content: `<a href="mailto:me@example.com">mail</a><a href="https://example.com/ok">ok</a>`,
			wantOK:  false,
		},
		{
			name:    "anchor without href",
			content: `<a name="top">top</a><a href="https://example.com/">x</a>`,
			wantOK:  false,
		},
		{
			name:    "relative href",
			content: `<a href="/local/page">local</a>`,
			wantOK:  false,
		},
		{
			name:    "localhost href",
			content: `<a href="http://localhost:8080/admin">admin</a>`,
			wantOK:  false,
		},
		{
			name:    "malformed fragment markup",
			content: `<div><a href="https://example.com/y">unclosed`,
			want:    "https://example.com/y",
			wantOK:  true,
		},
		{
			name:    "empty content",
			content: "",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstLink(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("FirstLink ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FirstLink = %q, want %q", got, tt.want)
			}
		})
	}
}
