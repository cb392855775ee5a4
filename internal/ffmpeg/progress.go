package ffmpeg

import (
	"regexp"
	"strconv"
)

// Progress is one decoded ffmpeg stderr status line.
type Progress struct {
	// TimeSeconds is the position in the source timeline.
	TimeSeconds float64
	// Speed is the encode speed multiplier (1.0 = realtime). Zero when the
	// line carried no speed field.
	Speed float64
}

var (
	timeRegex  = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	speedRegex = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// ParseProgressLine extracts time and speed from an ffmpeg stderr status
// line ("frame= ... time=00:01:23.45 ... speed=3.2x"). Returns false when
// the line carries no time field.
func ParseProgressLine(line string) (Progress, bool) {
	m := timeRegex.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds, _ := strconv.ParseFloat(m[3], 64)
	frac, _ := strconv.ParseFloat("0."+m[4], 64)

	p := Progress{
		TimeSeconds: hours*3600 + minutes*60 + seconds + frac,
	}

	if sm := speedRegex.FindStringSubmatch(line); sm != nil {
		if speed, err := strconv.ParseFloat(sm[1], 64); err == nil {
			p.Speed = speed
		}
	}

	return p, true
}

// PassWeights describes how much of the overall job one encoding pass is
// worth. When a job runs a single combined pass the video weight is 100.
type PassWeights struct {
	VideoPercent float64
	AudioPercent float64 // split evenly across audio passes
}

// WeightsFor returns the pass weights for a job with the given audio count.
func WeightsFor(audioCount int) PassWeights {
	if audioCount == 0 {
		return PassWeights{VideoPercent: 100}
	}
	return PassWeights{VideoPercent: 70, AudioPercent: 30}
}

// VideoProgress maps a video-pass position to overall job progress.
// Capped at 99; only publication reports 100.
func (w PassWeights) VideoProgress(timeSeconds, durationSeconds float64) float64 {
	return capProgress(fraction(timeSeconds, durationSeconds) * w.VideoPercent)
}

// AudioProgress maps an audio-pass position to overall job progress, given
// the pass index (0-based) and total number of audio passes.
func (w PassWeights) AudioProgress(timeSeconds, durationSeconds float64, passIndex, passCount int) float64 {
	if passCount <= 0 {
		return capProgress(w.VideoPercent)
	}
	perPass := w.AudioPercent / float64(passCount)
	done := w.VideoPercent + perPass*float64(passIndex)
	return capProgress(done + fraction(timeSeconds, durationSeconds)*perPass)
}

func fraction(pos, total float64) float64 {
	if total <= 0 {
		return 0
	}
	f := pos / total
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func capProgress(p float64) float64 {
	if p > 99 {
		return 99
	}
	if p < 0 {
		return 0
	}
	return p
}
