package api

import "testing"

func TestDecodeRateLimitReply(t *testing.T) {
	tests := []struct {
		name           string
		raw            interface{}
		windowMs       int64
		wantCount      int
		wantRetryAfter int
		wantErr        bool
	}{
		{
			name:           "whole seconds remaining",
			raw:            []interface{}{int64(5), int64(42000)},
			windowMs:       60000,
			wantCount:      5,
			wantRetryAfter: 42,
		},
		{
			name:           "partial second rounds up",
			raw:            []interface{}{int64(3), int64(1500)},
			windowMs:       60000,
			wantCount:      3,
			wantRetryAfter: 2,
		},
		{
			name:           "sub-second ttl floors to one second",
			raw:            []interface{}{int64(61), int64(200)},
			windowMs:       60000,
			wantCount:      61,
			wantRetryAfter: 1,
		},
		{
			name:           "zero ttl floors to one second",
			raw:            []interface{}{int64(61), int64(0)},
			windowMs:       60000,
			wantCount:      61,
			wantRetryAfter: 1,
		},
		{
			name:           "negative ttl falls back to the window",
			raw:            []interface{}{int64(1), int64(-1)},
			windowMs:       60000,
			wantCount:      1,
			wantRetryAfter: 60,
		},
		{
			name:     "wrong shape",
			raw:      []interface{}{int64(1)},
			windowMs: 60000,
			wantErr:  true,
		},
		{
			name:     "wrong count type",
			raw:      []interface{}{"one", int64(1000)},
			windowMs: 60000,
			wantErr:  true,
		},
		{
			name:     "wrong ttl type",
			raw:      []interface{}{int64(1), "soon"},
			windowMs: 60000,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, retryAfter, err := decodeRateLimitReply(tt.raw, tt.windowMs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got count=%d retryAfter=%d", count, retryAfter)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != tt.wantCount || retryAfter != tt.wantRetryAfter {
				t.Fatalf("got count=%d retryAfter=%d, want %d/%d", count, retryAfter, tt.wantCount, tt.wantRetryAfter)
			}
		})
	}
}
