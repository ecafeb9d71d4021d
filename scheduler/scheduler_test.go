package scheduler

import (
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
)

func TestCronSpecsParse(t *testing.T) {
	specs := map[string]string{
		"reminders": reminderSpec,
		"overdue":   overdueSpec,
		"summary":   summarySpec,
	}
	for name, spec := range specs {
		_, err := cron.ParseStandard(spec)
		assert.NoError(t, err, "%s spec %q", name, spec)
	}
}
