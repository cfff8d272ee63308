package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordStream(10, 1, 7)
	RecordTextMessage("UR")
	RecordTextDropped(2)
	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
}
