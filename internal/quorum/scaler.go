package quorum

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// metricsSample is one aggregated cluster-wide snapshot used by the
// scaling predictor, grounded on quorum.py's ScalingPredictor.metrics_history.
type metricsSample struct {
	at         time.Time
	memoryUsed float64
	cpuUsage   float64
	totalKeys  float64
}

// scalingPrediction is the predictor's forecast for the next
// forecast_horizon, mirroring predict_scaling_needs' output.
type scalingPrediction struct {
	predictedCPU    float64
	predictedMemory float64
}

// scalingPredictor fits a standardized linear trend (time -> usage) over
// a rolling window of cluster metrics and extrapolates forecastHorizon
// into the future, the Go counterpart of quorum.py's ScalingPredictor
// (sklearn's StandardScaler + LinearRegression there; gonum/stat's
// LinearRegression plus manual z-score standardization here, since no
// example repo in the pack pulls in a stats/ML library of its own and
// gonum is the standard ecosystem choice for this in Go).
type scalingPredictor struct {
	windowSize      time.Duration
	forecastHorizon time.Duration
	history         []metricsSample
}

func newScalingPredictor(windowSize, forecastHorizon time.Duration) *scalingPredictor {
	return &scalingPredictor{windowSize: windowSize, forecastHorizon: forecastHorizon}
}

func (p *scalingPredictor) addMetrics(now time.Time, memoryUsed, cpuUsage, totalKeys float64) {
	p.history = append(p.history, metricsSample{at: now, memoryUsed: memoryUsed, cpuUsage: cpuUsage, totalKeys: totalKeys})
	cutoff := now.Add(-p.windowSize)
	kept := p.history[:0]
	for _, s := range p.history {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	p.history = kept
}

// predict fits time-delta -> usage for CPU and memory independently and
// extrapolates forecastHorizon seconds past the last sample. It returns
// ok=false when there is insufficient history (the Python version's
// `len(self.metrics_history) < 10` guard).
func (p *scalingPredictor) predict() (scalingPrediction, bool) {
	if len(p.history) < 10 {
		return scalingPrediction{}, false
	}

	first := p.history[0].at
	times := make([]float64, len(p.history))
	cpu := make([]float64, len(p.history))
	mem := make([]float64, len(p.history))
	for i, s := range p.history {
		times[i] = s.at.Sub(first).Seconds()
		cpu[i] = s.cpuUsage
		mem[i] = s.memoryUsed
	}

	standardizedTimes, mean, std := standardize(times)
	forecastT := p.history[len(p.history)-1].at.Sub(first).Seconds() + p.forecastHorizon.Seconds()
	standardizedForecastT := (forecastT - mean) / std

	cpuAlpha, cpuBeta := stat.LinearRegression(standardizedTimes, cpu, nil, false)
	memAlpha, memBeta := stat.LinearRegression(standardizedTimes, mem, nil, false)

	return scalingPrediction{
		predictedCPU:    cpuAlpha + cpuBeta*standardizedForecastT,
		predictedMemory: memAlpha + memBeta*standardizedForecastT,
	}, true
}

func standardize(xs []float64) (out []float64, mean, std float64) {
	mean, std = stat.MeanStdDev(xs, nil)
	if std == 0 {
		std = 1
	}
	out = make([]float64, len(xs))
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out, mean, std
}

// ScalerConfig holds the auto-scaler's bounds and thresholds, grounded on
// quorum.py's AutoScaler constructor defaults.
type ScalerConfig struct {
	MinNodes        int
	MaxNodes        int
	CPUThreshold    float64
	MemoryThreshold float64
	ScaleUpFactor   float64
	ScaleDownFactor float64
	CooldownPeriod  time.Duration
}

// DefaultScalerConfig mirrors the Python AutoScaler's defaults.
func DefaultScalerConfig() ScalerConfig {
	return ScalerConfig{
		MinNodes:        2,
		MaxNodes:        10,
		CPUThreshold:    80.0,
		MemoryThreshold: 80.0,
		ScaleUpFactor:   1.5,
		ScaleDownFactor: 0.5,
		CooldownPeriod:  5 * time.Minute,
	}
}

// AutoScaler decides how many nodes the cluster should run, based on a
// predicted near-future CPU/memory load, honoring a cooldown and
// [MinNodes, MaxNodes] clamp (spec §8's invariant 7).
type AutoScaler struct {
	mu        sync.Mutex
	cfg       ScalerConfig
	predictor *scalingPredictor
	lastScale time.Time
	clock     ports.Clock
}

// NewAutoScaler constructs an AutoScaler with a 1h metrics window and a
// 5-minute forecast horizon, matching quorum.py's ScalingPredictor
// defaults.
func NewAutoScaler(cfg ScalerConfig, clock ports.Clock) *AutoScaler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &AutoScaler{
		cfg:       cfg,
		predictor: newScalingPredictor(time.Hour, 5*time.Minute),
		clock:     clock,
	}
}

// ScalingDecision is the outcome of CheckScaling: Delta is the signed
// node-count change to apply (0 means no change), Reason explains why.
type ScalingDecision struct {
	Delta  int
	Reason string
}

// CheckScaling aggregates currentNodeStats, feeds the predictor, and
// returns a scaling decision. It never recommends going outside
// [MinNodes, MaxNodes] or firing again within CooldownPeriod of the last
// scaling action.
func (a *AutoScaler) CheckScaling(currentNodeCount int, currentNodeStats map[string]ports.NodeStats) ScalingDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if !a.lastScale.IsZero() && now.Sub(a.lastScale) < a.cfg.CooldownPeriod {
		return ScalingDecision{Reason: "in cooldown period"}
	}

	var totalMemory, totalCPU, totalKeys float64
	for _, s := range currentNodeStats {
		totalMemory += float64(s.MemoryUsed)
		totalCPU += s.CPUUsage
		totalKeys += float64(s.TotalKeys)
	}
	nodeCount := len(currentNodeStats)
	if nodeCount == 0 {
		return ScalingDecision{Reason: "no node statistics available"}
	}
	a.predictor.addMetrics(now, totalMemory/float64(nodeCount), totalCPU/float64(nodeCount), totalKeys)

	prediction, ok := a.predictor.predict()
	if !ok {
		return ScalingDecision{Reason: "insufficient data for prediction"}
	}

	cpuNodes, cpuReason := a.targetFor(prediction.predictedCPU, a.cfg.CPUThreshold, currentNodeCount, "CPU")
	memNodes, memReason := a.targetFor(prediction.predictedMemory, a.cfg.MemoryThreshold, currentNodeCount, "memory")

	// quorum.py takes target_nodes = max(cpu_nodes, memory_nodes).
	target := cpuNodes
	reason := cpuReason
	if memNodes > target {
		target = memNodes
		reason = memReason
	}

	if target < a.cfg.MinNodes {
		target = a.cfg.MinNodes
	}
	if target > a.cfg.MaxNodes {
		target = a.cfg.MaxNodes
	}

	if target == currentNodeCount {
		return ScalingDecision{Reason: "no scaling needed"}
	}
	a.lastScale = now
	return ScalingDecision{Delta: target - currentNodeCount, Reason: reason}
}

func (a *AutoScaler) targetFor(predicted, threshold float64, currentNodeCount int, label string) (int, string) {
	switch {
	case predicted > threshold:
		return int(float64(currentNodeCount) * a.cfg.ScaleUpFactor), label + " threshold exceeded"
	case predicted < threshold*a.cfg.ScaleDownFactor:
		return int(float64(currentNodeCount) * a.cfg.ScaleDownFactor), label + " usage low"
	default:
		return currentNodeCount, ""
	}
}
