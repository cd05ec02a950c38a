package api

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
)

func TestAuthCache_FreshHit(t *testing.T) {
	cache := newAuthCache(1 * time.Minute)
	project := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	cache.set("wsk_abc123", project)

	proj, hit, needsRefresh := cache.get("wsk_abc123")
	if !hit {
		t.Fatal("expected cache hit")
	}
	if needsRefresh {
		t.Error("fresh entry should not need refresh")
	}
	if proj.ID != "proj_1" {
		t.Errorf("expected proj_1, got %s", proj.ID)
	}
}

func TestAuthCache_Miss(t *testing.T) {
	cache := newAuthCache(1 * time.Minute)

	proj, hit, needsRefresh := cache.get("wsk_nonexistent")
	if hit {
		t.Error("expected cache miss")
	}
	if proj != nil {
		t.Error("expected nil project on miss")
	}
	if needsRefresh {
		t.Error("miss should not need refresh")
	}
}

func TestAuthCache_StaleHit_ReturnsValueAndSignalsRefresh(t *testing.T) {
	cache := newAuthCache(1 * time.Millisecond) // Very short TTL
	project := &authProject{ID: "proj_1", Mode: "shadow"}

	cache.set("wsk_abc123", project)
	time.Sleep(5 * time.Millisecond) // Wait for expiration

	proj, hit, needsRefresh := cache.get("wsk_abc123")
	if !hit {
		t.Fatal("expected stale hit")
	}
	if !needsRefresh {
		t.Error("expired entry should signal refresh")
	}
	if proj.ID != "proj_1" {
		t.Error("stale hit should still return the project")
	}
}

func TestAuthCache_StaleHit_OnlyOneRefreshSignal(t *testing.T) {
	cache := newAuthCache(1 * time.Millisecond)
	cache.set("wsk_abc123", &authProject{ID: "proj_1"})
	time.Sleep(5 * time.Millisecond)

	// First stale read gets needsRefresh=true
	_, _, r1 := cache.get("wsk_abc123")
	if !r1 {
		t.Fatal("first stale read should signal refresh")
	}

	// Second stale read gets needsRefresh=false (someone already refreshing)
	proj, hit, r2 := cache.get("wsk_abc123")
	if !hit {
		t.Fatal("expected stale hit on second read")
	}
	if r2 {
		t.Error("second stale read should NOT signal refresh (already in progress)")
	}
	if proj.ID != "proj_1" {
		t.Error("second stale read should still return the project")
	}
}

func TestAuthCache_SetAfterStale_ResetsFreshness(t *testing.T) {
	cache := newAuthCache(1 * time.Millisecond)
	cache.set("wsk_abc123", &authProject{ID: "proj_1"})
	time.Sleep(5 * time.Millisecond)

	// Trigger stale read
	_, _, needsRefresh := cache.get("wsk_abc123")
	if !needsRefresh {
		t.Fatal("expected refresh signal")
	}

	// Simulate background refresh completing with updated data
	cache.set("wsk_abc123", &authProject{ID: "proj_1_updated", Mode: "shadow"})

	// Now should be fresh again
	proj, hit, r2 := cache.get("wsk_abc123")
	if !hit {
		t.Fatal("expected hit after refresh")
	}
	if r2 {
		t.Error("newly set entry should be fresh")
	}
	if proj.ID != "proj_1_updated" {
		t.Errorf("expected updated project, got %s", proj.ID)
	}
}

func TestAuthCache_ConcurrentStaleRefresh(t *testing.T) {
	cache := newAuthCache(1 * time.Millisecond)
	cache.set("wsk_key", &authProject{ID: "proj_1"})
	time.Sleep(5 * time.Millisecond) // Expire

	// 50 goroutines all read the stale entry — exactly one should get
	// needsRefresh=true
	var wg sync.WaitGroup
	var refreshCount int64
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, hit, needsRefresh := cache.get("wsk_key")
			if needsRefresh {
				mu.Lock()
				refreshCount++
				mu.Unlock()
			}
			if !hit {
				t.Error("expected stale hit")
			}
		}()
	}
	wg.Wait()

	if refreshCount != 1 {
		t.Errorf("expected exactly 1 refresh signal, got %d", refreshCount)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{"valid", "Bearer wsk_abc123", "wsk_abc123", true},
		{"trailing_space", "Bearer wsk_abc123  ", "wsk_abc123", true},
		{"missing_header", "", "", false},
		{"no_bearer_prefix", "wsk_abc123", "", false},
		{"basic_auth", "Basic dXNlcjpwYXNz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, ok := extractBearerToken(r)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
		})
	}
}

func TestParseSignalConfig_Empty(t *testing.T) {
	for _, raw := range []string{"", "{}", "null"} {
		o := parseSignalConfig([]byte(raw))
		if o.Signals != nil {
			t.Errorf("parseSignalConfig(%q) should produce zero overrides", raw)
		}
	}
}

func TestParseSignalConfig_Malformed(t *testing.T) {
	o := parseSignalConfig([]byte(`{not json`))
	if o.Signals != nil {
		t.Error("malformed config should produce zero overrides")
	}
}

func TestParseSignalConfig_DisableAndReweight(t *testing.T) {
	raw := []byte(`{
		"shell_or_git_mutation": {"enabled": false},
		"repeated_tool_failures": {"weight": 4}
	}`)

	o := parseSignalConfig(raw)
	if len(o.Signals) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(o.Signals))
	}

	if o.Signals[risk.SignalShellOrGitMutation].IsEnabled() {
		t.Error("shell_or_git_mutation should be disabled")
	}
	if got := o.Signals[risk.SignalRepeatedToolFailures].EffectiveWeight(1); got != 4 {
		t.Errorf("repeated_tool_failures weight = %d, want 4", got)
	}
	// Untouched fields keep server defaults
	if !o.Signals[risk.SignalRepeatedToolFailures].IsEnabled() {
		t.Error("reweighted signal should stay enabled")
	}
}

func BenchmarkAuthCache_Get_FreshHit(b *testing.B) {
	cache := newAuthCache(5 * time.Minute)
	cache.set("wsk_bench_key", &authProject{
		ID:     "proj_bench",
		Mode:   "enforce",
		Policy: gate.PolicyBalanced,
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, hit, _ := cache.get("wsk_bench_key")
			if !hit {
				b.Fatal("expected hit")
			}
		}
	})
}
