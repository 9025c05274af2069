package core

import (
	"context"
	"testing"
)

// ----------------------------------------------------------------------------
// Audit Metadata Context Tests
// ----------------------------------------------------------------------------

func TestAuditMetadataRoundTrip(t *testing.T) {
	ctx := ContextWithClientIP(context.Background(), "10.1.2.3")
	ctx = ContextWithUserAgent(ctx, "curl/8.5.0")

	if got := ClientIPFromContext(ctx); got != "10.1.2.3" {
		t.Errorf("ClientIPFromContext = %q, want 10.1.2.3", got)
	}
	if got := UserAgentFromContext(ctx); got != "curl/8.5.0" {
		t.Errorf("UserAgentFromContext = %q, want curl/8.5.0", got)
	}
}

func TestAuditMetadataAbsentDefaultsEmpty(t *testing.T) {
	ctx := context.Background()

	if got := ClientIPFromContext(ctx); got != "" {
		t.Errorf("ClientIPFromContext = %q, want empty", got)
	}
	if got := UserAgentFromContext(ctx); got != "" {
		t.Errorf("UserAgentFromContext = %q, want empty", got)
	}
}
