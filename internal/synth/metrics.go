package synth

// Metric names recorded by the engine.
const (
	MetricAnswers        = "graphask.answers"
	MetricAttempts       = "graphask.attempts"
	MetricRejections     = "graphask.rejections"
	MetricAnswerDuration = "graphask.answer.duration"
)

// MetricsRecorder receives engine measurements. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	RecordCounter(name string, value int64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
}

type noopRecorder struct{}

func (noopRecorder) RecordCounter(string, int64, map[string]string)     {}
func (noopRecorder) RecordHistogram(string, float64, map[string]string) {}
