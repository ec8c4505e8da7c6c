// Command session-sim runs a full synthetic presentation session through the
// pipeline with scripted detectors, prints the resulting observations, and
// optionally persists them for the report API to serve.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/podium-data/delivery.report/internal/config"
	"github.com/podium-data/delivery.report/internal/db"
	"github.com/podium-data/delivery.report/internal/timeutil"
	"github.com/podium-data/delivery.report/internal/vision/detect"
	"github.com/podium-data/delivery.report/internal/vision/frame"
	"github.com/podium-data/delivery.report/internal/vision/pipeline"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

const frameWidth = 1280
const frameHeight = 720

// simFace synthesizes face detections from a seeded random walk. The payload
// carries the frame index so reruns with the same seed are identical.
type simFace struct {
	rng *rand.Rand
}

func (s *simFace) DetectFace(payload []byte) (*detect.FaceDetection, error) {
	// Roughly one frame in twelve loses the face, as a handheld recording would.
	if s.rng.Float64() < 0.08 {
		return nil, nil
	}
	cx := float64(frameWidth)/2 + s.rng.Float64()*40 - 20
	cy := float64(frameHeight)/2 + s.rng.Float64()*20 - 10
	yawSkew := s.rng.Float64()*24 - 12

	return &detect.FaceDetection{
		Landmarks: detect.FaceLandmarks{
			RightEye: detect.Point{X: cx - 30, Y: cy - 20},
			LeftEye:  detect.Point{X: cx + 30, Y: cy - 20},
			Nose:     detect.Point{X: cx + yawSkew, Y: cy},
			Mouth:    detect.Point{X: cx, Y: cy + 20},
			RightEar: detect.Point{X: cx - 60, Y: cy},
			LeftEar:  detect.Point{X: cx + 60, Y: cy},
		},
		Box:        detect.BoundingBox{X: cx - 80, Y: cy - 80, Width: 160, Height: 160},
		Confidence: 0.85 + s.rng.Float64()*0.1,
	}, nil
}

func (s *simFace) ModelID() string { return "sim-face-v1" }

// simPose synthesizes a speaker who paces slowly and gestures in bursts.
type simPose struct {
	rng *rand.Rand
	t   float64
}

func (s *simPose) DetectPose(payload []byte) (*detect.PoseDetection, error) {
	s.t += 0.5

	// Slow lateral pacing across the stage.
	bodyX := float64(frameWidth)/2 + 200*math.Sin(s.t/30)
	bodyTop := 150.0
	bodyBottom := 650.0

	// Hands rest near the hips, with occasional large excursions.
	handY := 450.0
	handOffset := 40.0
	if s.rng.Float64() < 0.2 {
		handOffset = 160 + s.rng.Float64()*80
		handY = 300
	}

	kp := func(x, y float64) detect.Keypoint {
		return detect.Keypoint{Point: detect.Point{X: x, Y: y}, Confidence: 0.9}
	}
	return &detect.PoseDetection{
		Keypoints: map[string]detect.Keypoint{
			detect.KeypointNose:          kp(bodyX, bodyTop),
			detect.KeypointLeftShoulder:  kp(bodyX+70, bodyTop+80),
			detect.KeypointRightShoulder: kp(bodyX-70, bodyTop+80),
			detect.KeypointLeftElbow:     kp(bodyX+90, handY-60),
			detect.KeypointRightElbow:    kp(bodyX-90, handY-60),
			detect.KeypointLeftWrist:     kp(bodyX+handOffset, handY),
			detect.KeypointRightWrist:    kp(bodyX-handOffset, handY),
			detect.KeypointLeftHip:       kp(bodyX+50, bodyBottom-100),
			detect.KeypointRightHip:      kp(bodyX-50, bodyBottom-100),
		},
		Confidence: 0.92,
	}, nil
}

func (s *simPose) ModelID() string { return "sim-pose-v1" }

func main() {
	duration := flag.Float64("duration", 120, "simulated session length in seconds")
	rate := flag.Float64("fps", 2.0, "simulated capture rate in frames per second")
	seed := flag.Int64("seed", 42, "random seed for the scripted detectors")
	dbPath := flag.String("db", "", "optional SQLite database to persist the session into")
	migrationsDir := flag.String("migrations", "db/migrations", "migrations directory, used with -db")
	flag.Parse()

	caps := detect.Capabilities{
		Face: &simFace{rng: rand.New(rand.NewSource(*seed))},
		Pose: &simPose{rng: rand.New(rand.NewSource(*seed + 1))},
	}

	interval := 1.0 / *rate
	frames := int(*duration / interval)

	// Manual drain keeps the run deterministic: every frame sits in the
	// queue until Finalize, so the queue must hold the whole session.
	cfg := config.EmptySessionConfig()
	queueSize := frames + 1
	cfg.QueueMaxSize = &queueSize
	cfg.FrameRate = rate

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	proc, err := pipeline.NewProcessor(cfg, caps, pipeline.Options{
		Clock:       clock,
		ManualDrain: true,
	})
	if err != nil {
		log.Fatalf("failed to build processor: %v", err)
	}
	payload := make([]byte, 1)
	admitted := 0
	for i := 0; i < frames; i++ {
		h := frame.Header{
			Seq:       int64(i),
			Timestamp: float64(i) * interval,
			Width:     frameWidth,
			Height:    frameHeight,
		}
		if proc.EnqueueFrame(h, payload) {
			admitted++
		}
	}
	log.Printf("enqueued %d frames, %d admitted", frames, admitted)

	segments := []pipeline.TranscriptSegment{}
	for t := 0.0; t < *duration; t += 8 {
		segments = append(segments, pipeline.TranscriptSegment{
			StartSeconds: t,
			EndSeconds:   math.Min(t+8, *duration),
			Text:         "…",
		})
	}

	obs, err := proc.Finalize(segments)
	if err != nil {
		log.Fatalf("finalize failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obs); err != nil {
		log.Fatalf("failed to encode observations: %v", err)
	}

	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}

		rec := &sqlite.SessionRecord{Observations: obs}
		store := sqlite.NewObservationsStore(database.DB)
		if err := store.Insert(rec); err != nil {
			log.Fatalf("failed to persist session: %v", err)
		}
		log.Printf("✓ Persisted session %s to %s", rec.SessionID, *dbPath)
	}
}
