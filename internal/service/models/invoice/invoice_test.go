package invoice_test

import (
	"testing"
	"time"

	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds ago", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "a minute ago"},
		{"minutes", now.Add(-25 * time.Minute), "25 minutes ago"},
		{"one hour", now.Add(-90 * time.Minute), "an hour ago"},
		{"hours", now.Add(-7 * time.Hour), "7 hours ago"},
		{"yesterday", now.Add(-30 * time.Hour), "yesterday"},
		{"days", now.Add(-5 * 24 * time.Hour), "5 days ago"},
		{"older than a month", now.Add(-60 * 24 * time.Hour), "Apr 16, 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, invoice.TimeAgo(tt.t, now))
		})
	}
}
