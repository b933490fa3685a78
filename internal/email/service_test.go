package email

import "testing"

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{name: "empty config", config: Config{}, expected: false},
		{name: "missing host", config: Config{Port: "587", From: "gallery@example.com"}, expected: false},
		{name: "missing port", config: Config{Host: "smtp.example.com", From: "gallery@example.com"}, expected: false},
		{name: "missing from", config: Config{Host: "smtp.example.com", Port: "587"}, expected: false},
		{
			name:     "fully configured",
			config:   Config{Host: "smtp.example.com", Port: "587", From: "gallery@example.com"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestSendFailsWhenNotConfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.Send([]string{"a@example.com"}, "s", "b"); err == nil {
		t.Fatal("expected error when unconfigured")
	}
}
