// Package pipeline wires the temporal integrity gate, the bounded frame
// queue, the adaptive sampler, and the four accumulators into one session
// processor, and produces the final VisualObservations aggregate.
//
// Concurrency model: one producer (EnqueueFrame, synchronous) and one
// consumer (the drain loop) meet only at the queue. All accumulator state is
// mutated on the drain-loop side, so no accumulator needs a lock. Finalize
// is the single synchronization point: it halts the background loop, drains
// the remainder within the time budget, and assembles the aggregate.
package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/podium-data/delivery.report/internal/config"
	"github.com/podium-data/delivery.report/internal/monitoring"
	"github.com/podium-data/delivery.report/internal/timeutil"
	"github.com/podium-data/delivery.report/internal/vision/adaptive"
	"github.com/podium-data/delivery.report/internal/vision/detect"
	"github.com/podium-data/delivery.report/internal/vision/energy"
	"github.com/podium-data/delivery.report/internal/vision/frame"
	"github.com/podium-data/delivery.report/internal/vision/framequeue"
	"github.com/podium-data/delivery.report/internal/vision/gate"
	"github.com/podium-data/delivery.report/internal/vision/gaze"
	"github.com/podium-data/delivery.report/internal/vision/gesture"
	"github.com/podium-data/delivery.report/internal/vision/sampler"
	"github.com/podium-data/delivery.report/internal/vision/stability"
)

// Options tunes processor construction beyond the session configuration.
type Options struct {
	// Clock supplies time for the drain loop, the adaptive cooldown, and the
	// finalization budget. Defaults to the real clock.
	Clock timeutil.Clock
	// ManualDrain suppresses the background drain goroutine; queued frames
	// are then processed only by Finalize (or by explicit drain calls from
	// tests in this package). Deterministic-run callers use this.
	ManualDrain bool
}

// Processor is one video session's processing pipeline. Construct with
// NewProcessor, feed with EnqueueFrame, and close with Finalize (or Stop).
type Processor struct {
	cfg   *config.SessionConfig
	caps  detect.Capabilities
	clock timeutil.Clock

	gate    *gate.Gate
	queue   *framequeue.Queue
	sampler *sampler.RateSampler
	ctrl    *adaptive.Controller

	gazeAcc      *gaze.Accumulator
	gestureAcc   *gesture.Accumulator
	stabilityAcc *stability.Accumulator
	energyAcc    *energy.Accumulator

	counters  counters
	retention *retentionTracker

	// Admission-side state, guarded by admitMu.
	admitMu         sync.Mutex
	admissionClosed bool
	admittedAny     bool
	firstAdmittedTS float64
	lastAdmittedTS  float64

	// Drain-side state; touched only by the single drain thread.
	prevWidth  int
	prevHeight int
	dimsSet    bool

	manualDrain bool
	stopCh      chan struct{}
	drainDone   chan struct{}
	haltOnce    sync.Once

	finalMu   sync.Mutex
	stopped   bool
	finalized bool
}

// NewProcessor validates the configuration and builds the pipeline. Invalid
// configuration is the only caller-visible failure in the processor's life;
// every later degraded condition surfaces as data in the final aggregate.
func NewProcessor(cfg *config.SessionConfig, caps detect.Capabilities, opts Options) (*Processor, error) {
	if cfg == nil {
		cfg = config.EmptySessionConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	p := &Processor{
		cfg:   cfg,
		caps:  caps,
		clock: clock,

		gate:    gate.New(cfg.GetStaleFrameSeconds()),
		queue:   framequeue.New(cfg.GetQueueMaxSize()),
		sampler: sampler.New(cfg.GetFrameRate()),
		ctrl: adaptive.New(adaptive.Config{
			BaseRate:          cfg.GetFrameRate(),
			OverloadThreshold: cfg.GetBackpressureOverloadThreshold(),
			RecoveryThreshold: cfg.GetBackpressureRecoveryThreshold(),
			Cooldown:          time.Duration(cfg.GetBackpressureCooldownMs()) * time.Millisecond,
			Clock:             clock,
		}),

		gazeAcc: gaze.New(gaze.Config{
			ConfidenceThreshold:   cfg.GetFaceConfidenceThreshold(),
			MinFaceAreaFraction:   cfg.GetMinFaceAreaFraction(),
			YawThresholdDegrees:   cfg.GetGazeYawThresholdDeg(),
			PitchThresholdDegrees: cfg.GetGazePitchThresholdDeg(),
		}),
		gestureAcc: gesture.New(gesture.Config{
			KeypointConfidenceThreshold: cfg.GetPoseConfidenceThreshold(),
			DisplacementThreshold:       cfg.GetGestureDisplacementThreshold(),
		}),
		stabilityAcc: stability.New(stability.Config{
			KeypointConfidenceThreshold: cfg.GetPoseConfidenceThreshold(),
			WindowSeconds:               cfg.GetStabilityWindowSeconds(),
			MinSamplesPerWindow:         cfg.GetMinValidFramesPerWindow(),
			CrossingThreshold:           cfg.GetStageCrossingThreshold(),
		}),
		energyAcc: energy.New(energy.Config{
			ConfidenceThreshold: cfg.GetFaceConfidenceThreshold(),
			Epsilon:             cfg.GetFacialEnergyEpsilon(),
		}),

		retention: newRetentionTracker(cfg.GetStabilityWindowSeconds()),

		manualDrain: opts.ManualDrain,
		stopCh:      make(chan struct{}),
		drainDone:   make(chan struct{}),
	}

	if !p.manualDrain {
		go p.run()
	}
	return p, nil
}

// EnqueueFrame offers one frame to the session. It never blocks: a frame
// that fails the temporal gate or meets a full queue is counted and
// rejected. The payload is held by reference until the frame is processed
// or discarded, never copied. Returns whether the frame entered the queue.
//
// Frames offered after Finalize or Stop are ignored entirely and appear in
// no counter.
func (p *Processor) EnqueueFrame(h frame.Header, payload []byte) bool {
	p.admitMu.Lock()
	if p.admissionClosed {
		p.admitMu.Unlock()
		return false
	}
	p.counters.received.Add(1)

	res := p.gate.Admit(h)
	if !res.Admitted {
		p.counters.droppedTimestamp.Add(1)
		p.admitMu.Unlock()
		return false
	}
	if res.ResolutionChanged {
		p.counters.resolutionChanges.Add(1)
	}
	if !p.admittedAny {
		p.admittedAny = true
		p.firstAdmittedTS = h.Timestamp
	}
	p.lastAdmittedTS = h.Timestamp
	p.retention.recordAdmitted(h.Timestamp)
	p.admitMu.Unlock()

	if !p.queue.Enqueue(frame.Frame{Header: h, Payload: payload}) {
		p.counters.droppedBackpressure.Add(1)
		return false
	}
	return true
}

// run is the background drain loop: process queued frames one at a time,
// idle with a bounded sleep when the queue is empty, exit on stop.
func (p *Processor) run() {
	defer close(p.drainDone)
	idle := time.Duration(p.cfg.GetIdlePollIntervalMs()) * time.Millisecond
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		if !p.drainStep() {
			p.clock.Sleep(idle)
		}
	}
}

// drainStep processes at most one queued frame. Returns false when the
// queue was empty.
func (p *Processor) drainStep() bool {
	f, ok := p.queue.Dequeue()
	if !ok {
		return false
	}
	p.processFrame(f)
	return true
}

// processFrame runs one dequeued frame through the adaptive controller, the
// sampler, the detectors, and the accumulators.
func (p *Processor) processFrame(f frame.Frame) {
	// The controller re-evaluates only on actual dequeue; a starved loop
	// freezes in its current mode.
	p.sampler.SetRate(p.ctrl.Evaluate(p.backpressureRatio()))

	h := f.Header
	if !p.sampler.ShouldSample(h.Timestamp) {
		p.counters.skippedBySampler.Add(1)
		p.retention.recordRetained(h.Timestamp)
		return
	}

	var faceDet *detect.FaceDetection
	if p.caps.Face != nil {
		d, err := p.caps.Face.DetectFace(f.Payload)
		if err != nil {
			p.counters.errored.Add(1)
			monitoring.Logf("vision: face detector failed at seq %d: %v", h.Seq, err)
			return
		}
		faceDet = d
	}
	var poseDet *detect.PoseDetection
	if p.caps.Pose != nil {
		d, err := p.caps.Pose.DetectPose(f.Payload)
		if err != nil {
			p.counters.errored.Add(1)
			monitoring.Logf("vision: pose detector failed at seq %d: %v", h.Seq, err)
			return
		}
		poseDet = d
	}

	// A resolution change resets only per-resolution normalization state;
	// counters and accumulated history are preserved.
	if p.dimsSet && (h.Width != p.prevWidth || h.Height != p.prevHeight) {
		p.gazeAcc.ResetSmoothing()
		p.gestureAcc.ResetNormalization()
		p.energyAcc.ResetNormalization()
	}
	p.prevWidth, p.prevHeight = h.Width, h.Height
	p.dimsSet = true

	p.counters.analyzed.Add(1)
	p.retention.recordRetained(h.Timestamp)

	p.gazeAcc.Observe(h.Timestamp, faceDet, h.Width, h.Height)
	p.gestureAcc.Observe(h.Timestamp, poseDet)
	p.stabilityAcc.Observe(h.Timestamp, poseDet, h.Width, h.Height)
	p.energyAcc.Observe(faceDet)
}

// backpressureRatio is dropped-by-backpressure over temporally-admitted
// frames received so far.
func (p *Processor) backpressureRatio() float64 {
	denom := p.counters.received.Load() - p.counters.droppedTimestamp.Load()
	if denom <= 0 {
		return 0
	}
	return float64(p.counters.droppedBackpressure.Load()) / float64(denom)
}

// closeAdmission rejects all future EnqueueFrame calls.
func (p *Processor) closeAdmission() {
	p.admitMu.Lock()
	p.admissionClosed = true
	p.admitMu.Unlock()
}

// haltDrain stops the background loop and waits for it to exit.
func (p *Processor) haltDrain() {
	p.haltOnce.Do(func() {
		close(p.stopCh)
		if !p.manualDrain {
			<-p.drainDone
		}
	})
}

// Stop terminates the session immediately and non-gracefully: admission
// closes, the drain loop halts, and every queued frame is discarded and
// counted as dropped by the finalization budget. A later Finalize reports
// zero additional drained frames but still produces the aggregate.
func (p *Processor) Stop() {
	p.finalMu.Lock()
	defer p.finalMu.Unlock()
	if p.stopped || p.finalized {
		return
	}
	p.closeAdmission()
	p.haltDrain()
	discarded := p.queue.DrainDiscard()
	p.counters.droppedBudget.Add(int64(discarded))
	p.queue.Close()
	p.stopped = true
	if discarded > 0 {
		monitoring.Logf("vision: stop discarded %d queued frames", discarded)
	}
}

// Finalize closes admission, drains the queue through the pipeline until
// empty or until the finalization budget elapses, and assembles the final
// aggregate. Leftover queued frames are counted, never silently lost.
// transcriptSegments may be nil. Finalize may be called once.
func (p *Processor) Finalize(transcriptSegments []TranscriptSegment) (*VisualObservations, error) {
	p.finalMu.Lock()
	defer p.finalMu.Unlock()
	if p.finalized {
		return nil, fmt.Errorf("processor already finalized")
	}

	p.closeAdmission()
	p.haltDrain()

	start := p.clock.Now()
	if !p.stopped {
		budget := time.Duration(p.cfg.GetFinalizationBudgetMs()) * time.Millisecond
		for p.clock.Since(start) < budget {
			if !p.drainStep() {
				break
			}
		}
		leftover := p.queue.DrainDiscard()
		p.counters.droppedBudget.Add(int64(leftover))
		p.queue.Close()
		if leftover > 0 {
			monitoring.Logf("vision: finalization budget exhausted with %d frames queued", leftover)
		}
	}
	latencyMs := p.clock.Since(start).Milliseconds()

	obs := p.assemble(transcriptSegments, latencyMs)
	p.finalized = true
	return obs, nil
}

// assemble builds the immutable VisualObservations from the accumulated
// session state. Called exactly once, after all processing has stopped.
func (p *Processor) assemble(segments []TranscriptSegment, latencyMs int64) *VisualObservations {
	snap := p.counters.snapshot()
	precision := p.cfg.GetMetricRoundingPrecision()

	var duration float64
	if p.admittedAny {
		duration = p.lastAdmittedTS - p.firstAdmittedTS
	}

	stab := p.stabilityAcc.Finalize()
	en := p.energyAcc.Finalize()
	lowRetention := !p.retention.allWindowsRetained(p.cfg.GetFrameRetentionWarningThreshold())

	var gestureFreq float64
	if duration > 0 {
		gestureFreq = roundTo(float64(p.gestureAcc.GestureCount())/(duration/60), precision)
	}

	obs := &VisualObservations{
		Counters:        snap,
		DurationSeconds: roundTo(duration, precision),

		GazeBreakdown:        p.gazeAcc.Finalize(snap.FramesAnalyzed, precision),
		FaceNotDetectedCount: p.gazeAcc.FaceNotDetectedCount(),

		TotalGestureCount:       p.gestureAcc.GestureCount(),
		GestureFrequency:        gestureFreq,
		GesturePerSentenceRatio: p.gesturePerSentenceRatio(segments, lowRetention, precision),
		HandsDetectedFrames:     p.gestureAcc.HandsDetectedCount(),
		HandsNotDetectedFrames:  p.gestureAcc.HandsNotDetectedCount(),

		MeanBodyStabilityScore: roundTo(stab.Score, precision),
		MovementClassification: stab.MovementClass,
		StageCrossingCount:     stab.StageCrossings,
		StabilityWindowScores:  stab.Windows,

		MeanFacialEnergyScore: roundTo(en.Score, precision),
		FacialEnergyVariation: roundTo(en.Variation, precision),
		FacialEnergyLowSignal: en.LowSignal,

		FinalizationLatencyMs: latencyMs,
		ProcessingFingerprint: computeFingerprint(p.cfg, p.caps),
	}

	obs.VideoQualityGrade = grade(gradeInputs{
		hasDetectors:      p.caps.HasAny(),
		framesAnalyzed:    snap.FramesAnalyzed,
		faceNotDetected:   p.gazeAcc.FaceNotDetectedCount(),
		expectedSamples:   duration * p.cfg.GetFrameRate(),
		analysisRateFloor: analysisRateFloor,
		faceRateGood:      faceRateGood,
		faceRateDegraded:  faceRateDegraded,
	})
	// The warning is derived, never stored independently.
	obs.VideoQualityWarning = obs.VideoQualityGrade != GradeGood

	if snap.FramesAnalyzed > 0 {
		analyzed := float64(snap.FramesAnalyzed)
		faceCoverage := float64(snap.FramesAnalyzed-p.gazeAcc.FaceNotDetectedCount()) / analyzed
		handsCoverage := float64(p.gestureAcc.HandsDetectedCount()) / analyzed
		bodyCoverage := float64(p.stabilityAcc.BodyDetectedCount()) / analyzed
		obs.Reliability = ReliabilityFlags{
			GazeReliable:      faceCoverage >= p.cfg.GetGazeCoverageThreshold() && !lowRetention,
			GestureReliable:   handsCoverage >= p.cfg.GetGestureCoverageThreshold() && !lowRetention,
			StabilityReliable: bodyCoverage >= p.cfg.GetStabilityCoverageThreshold() && stab.Valid && !lowRetention,
			EnergyReliable:    faceCoverage >= p.cfg.GetEnergyCoverageThreshold() && !en.LowSignal && !lowRetention,
		}
	}

	return obs
}

// gesturePerSentenceRatio is nil unless segments were supplied and every
// retention window held; otherwise it is the fraction of segments that
// contained at least one gesture.
func (p *Processor) gesturePerSentenceRatio(segments []TranscriptSegment, lowRetention bool, precision int) *float64 {
	if len(segments) == 0 || lowRetention {
		return nil
	}
	times := p.gestureAcc.GestureTimes()
	var withGesture int
	for _, seg := range segments {
		for _, t := range times {
			if t >= seg.StartSeconds && t < seg.EndSeconds {
				withGesture++
				break
			}
		}
	}
	v := roundTo(float64(withGesture)/float64(len(segments)), precision)
	return &v
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
