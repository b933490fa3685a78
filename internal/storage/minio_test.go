package storage

import "testing"

func TestOwnsMatchesOnlyBucketURLs(t *testing.T) {
	c := &Client{bucket: "atelier-images", publicURL: "https://cdn.example.com/atelier-images"}

	cases := []struct {
		url  string
		owns bool
	}{
		{"https://cdn.example.com/atelier-images/img_abc.jpg", true},
		{"https://cdn.example.com/atelier-images/", false},
		{"https://cdn.example.com/other-bucket/img_abc.jpg", false},
		{"https://elsewhere.example.com/img_abc.jpg", false},
		{"https://cdn.example.com/atelier-images/../secrets", false},
	}
	for _, tc := range cases {
		if got := c.Owns(tc.url); got != tc.owns {
			t.Errorf("Owns(%q) = %v, want %v", tc.url, got, tc.owns)
		}
	}
}

func TestObjectKeyStripsPublicPrefix(t *testing.T) {
	c := &Client{publicURL: "https://cdn.example.com/atelier-images"}
	key, ok := c.objectKey("https://cdn.example.com/atelier-images/img_abc.jpg")
	if !ok || key != "img_abc.jpg" {
		t.Fatalf("unexpected key %q ok=%v", key, ok)
	}
}
