package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "Reencoding") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_LabelChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "Demuxing") {
		t.Error("first label should log")
	}
	if s.ShouldLog(1, "Demuxing") {
		t.Error("same label and bucket should not log again")
	}
	if !s.ShouldLog(10, "  Extracting Metadata  ") {
		t.Error("new label should log")
	}
	if s.lastLabel != "Extracting Metadata" {
		t.Errorf("lastLabel = %q, want trimmed label", s.lastLabel)
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{20, true},
		{23, false},
		{25, true},
		{29.9, false},
		{30, true},
		{100, true},
		{140, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "Reencoding"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_NegativePercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "Reencoding") {
		t.Error("first call should log on label change")
	}
	if s.ShouldLog(-1, "Reencoding") {
		t.Error("unknown percent should not trigger bucket logging")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "Reencoding")
	s.Reset()
	if !s.ShouldLog(50, "Reencoding") {
		t.Error("should log after reset")
	}
}
