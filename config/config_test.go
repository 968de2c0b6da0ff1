package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	s := Load()

	if s.ModelProvider != ProviderOpenAI {
		t.Errorf("Expected default provider %q, got %q", ProviderOpenAI, s.ModelProvider)
	}
	if s.ThreadStore != ThreadStoreMemory {
		t.Errorf("Expected default thread store %q, got %q", ThreadStoreMemory, s.ThreadStore)
	}
	if s.CacheCapacity != 1000 {
		t.Errorf("Expected default cache capacity 1000, got %d", s.CacheCapacity)
	}
	if s.CacheTTL != time.Hour {
		t.Errorf("Expected default cache TTL 1h, got %v", s.CacheTTL)
	}
	if s.InvokeTimeout != 120*time.Second {
		t.Errorf("Expected default invoke timeout 120s, got %v", s.InvokeTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAINTDESK_MODEL_PROVIDER", "claude")
	t.Setenv("PAINTDESK_CACHE_CAPACITY", "50")
	t.Setenv("PAINTDESK_CACHE_TTL", "30m")
	t.Setenv("PAINTDESK_PRODUCT_AGENT_ID", "agent-prod-1")

	s := Load()
	if s.ModelProvider != ProviderClaude {
		t.Errorf("Expected provider claude, got %q", s.ModelProvider)
	}
	if s.CacheCapacity != 50 {
		t.Errorf("Expected capacity 50, got %d", s.CacheCapacity)
	}
	if s.CacheTTL != 30*time.Minute {
		t.Errorf("Expected TTL 30m, got %v", s.CacheTTL)
	}
	if s.ProductAgentID != "agent-prod-1" {
		t.Errorf("Expected product agent ID set, got %q", s.ProductAgentID)
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Settings)
		expected bool
	}{
		{
			name:     "no endpoint no key",
			mutate:   func(s *Settings) {},
			expected: false,
		},
		{
			name: "key but no agents",
			mutate: func(s *Settings) {
				s.ModelAPIKey = "sk-test"
			},
			expected: false,
		},
		{
			name: "key and one agent",
			mutate: func(s *Settings) {
				s.ModelAPIKey = "sk-test"
				s.OrderAgentID = "agent-1"
			},
			expected: true,
		},
		{
			name: "endpoint and one agent",
			mutate: func(s *Settings) {
				s.ModelEndpoint = "https://models.example.com"
				s.KnowledgeAgentID = "agent-2"
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{}
			tt.mutate(s)
			if got := s.Configured(); got != tt.expected {
				t.Errorf("Configured() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestAgentIDsOmitsUnset(t *testing.T) {
	s := &Settings{ProductAgentID: "p-1", KnowledgeAgentID: "k-1"}

	ids := s.AgentIDs()
	if len(ids) != 2 {
		t.Fatalf("Expected 2 agent IDs, got %d", len(ids))
	}
	if ids["ProductLookupAgent"] != "p-1" || ids["KnowledgeAgent"] != "k-1" {
		t.Errorf("Unexpected agent IDs: %v", ids)
	}
	if _, ok := ids["OrderStatusAgent"]; ok {
		t.Error("Unset order agent must be omitted")
	}
}

func TestValidate(t *testing.T) {
	s := Load()
	if err := s.Validate(); err != nil {
		t.Errorf("Default settings must validate, got %v", err)
	}

	s.ModelProvider = "bedrock"
	s.CacheCapacity = 0
	err := s.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "PAINTDESK_MODEL_PROVIDER") {
		t.Errorf("Expected provider field in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "PAINTDESK_CACHE_CAPACITY") {
		t.Errorf("Expected capacity field in error, got %v", err)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := NewValidator().
		RequireNonEmpty("a", "").
		RequirePositive("b", -1).
		ValidateOneOf("c", "x", "y", "z")

	if !v.HasErrors() {
		t.Fatal("Expected validation errors")
	}
	if len(v.Errors()) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(v.Errors()))
	}
}
