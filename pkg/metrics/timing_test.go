package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")

	m.Record(10 * time.Millisecond)
	m.Record(20 * time.Millisecond)
	m.Record(5 * time.Millisecond)

	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
	if m.MaxNs() != int64(20*time.Millisecond) {
		t.Errorf("MaxNs = %d, want 20ms", m.MaxNs())
	}
	if m.MinNs() != int64(5*time.Millisecond) {
		t.Errorf("MinNs = %d, want 5ms", m.MinNs())
	}
	if avg := m.AvgNs(); avg != int64(35*time.Millisecond)/3 {
		t.Errorf("AvgNs = %d", avg)
	}
}

func TestTimingMetricConcurrent(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if m.Count() != 800 {
		t.Errorf("Count = %d, want 800", m.Count())
	}
	if m.TotalNs() != 800*int64(time.Millisecond) {
		t.Errorf("TotalNs = %d", m.TotalNs())
	}
}

func TestDisabledSkipsCollection(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("disabled")
	m.Record(time.Second)
	if m.Count() != 0 {
		t.Error("Record collected while disabled")
	}

	done := Timer(m)
	done()
	if m.Count() != 0 {
		t.Error("Timer collected while disabled")
	}
}

func TestTimerRecords(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("timer")
	done := Timer(m)
	done()
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestStatsSnapshot(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("snap")
	m.Record(4 * time.Millisecond)
	m.Record(6 * time.Millisecond)

	s := m.Stats()
	if s.Name != "snap" || s.Count != 2 {
		t.Errorf("Stats = %+v", s)
	}
	if s.AvgMs != 5 || s.MaxMs != 6 || s.MinMs != 4 {
		t.Errorf("Stats ms = avg %v max %v min %v", s.AvgMs, s.MaxMs, s.MinMs)
	}

	m.Reset()
	if m.Count() != 0 || m.MaxNs() != 0 {
		t.Error("Reset left data behind")
	}
}

func TestFrameWindowStats(t *testing.T) {
	SetEnabled(true)
	w := &FrameWindow{}
	if s := w.Stats(); s != (FrameStats{}) {
		t.Errorf("empty window stats = %+v, want zero", s)
	}

	// 100 frames from 1ms..100ms.
	for i := 1; i <= 100; i++ {
		w.Record(time.Duration(i) * time.Millisecond)
	}
	s := w.Stats()
	if s.Frames != 100 {
		t.Errorf("Frames = %d, want 100", s.Frames)
	}
	if s.P50Ms < 45 || s.P50Ms > 55 {
		t.Errorf("P50Ms = %v, want ~50", s.P50Ms)
	}
	if s.P95Ms < 90 || s.P95Ms > 100 {
		t.Errorf("P95Ms = %v, want ~95", s.P95Ms)
	}
	if s.MeanMs < 50 || s.MeanMs > 51 {
		t.Errorf("MeanMs = %v, want 50.5", s.MeanMs)
	}
}

func TestFrameWindowWraps(t *testing.T) {
	SetEnabled(true)
	w := &FrameWindow{}
	// Overfill the ring with a constant, then check the window forgot the
	// earlier outlier.
	w.Record(time.Second)
	for i := 0; i < frameWindowSize; i++ {
		w.Record(10 * time.Millisecond)
	}
	s := w.Stats()
	if s.P95Ms != 10 {
		t.Errorf("P95Ms = %v, want 10 after outlier aged out", s.P95Ms)
	}
	if s.Frames != int64(frameWindowSize)+1 {
		t.Errorf("Frames = %d, want %d", s.Frames, frameWindowSize+1)
	}
}
