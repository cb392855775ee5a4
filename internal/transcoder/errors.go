package transcoder

import (
	"errors"
	"strings"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// Error kinds the worker classifies job outcomes by. Each kind decides a
// different recovery: corruption and validation drive the retry policy,
// hardware decode failures are recovered inside the transcoder itself.
var (
	// ErrCorruptedSource re-exports the probe-level corruption error.
	// Fatal: the job is failed and never retried.
	ErrCorruptedSource = ffmpeg.ErrCorruptedSource

	// ErrValidationFailed means the post-encode gate rejected the output.
	// The lock is removed and the job is retried per the retry policy.
	ErrValidationFailed = errors.New("output validation failed")

	// ErrHardwareDecode marks a GPU decode failure on the first attempt.
	// Recovered locally with a software-decode retry; surfaces only when
	// the retry also fails.
	ErrHardwareDecode = errors.New("hardware decode failed")
)

// fatalMarkers are error-message fragments that must never be retried.
var fatalMarkers = []string{
	"SIGKILL",
	"SIGTERM",
	"corrupted",
	"Invalid data",
}

// IsFatal reports whether a job error belongs to the never-retry set.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCorruptedSource) {
		return true
	}
	msg := err.Error()
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// looksLikeDecodeFailure reports whether an encode error points at the
// decode side, which is what the HEVC VAAPI fallback keys on.
var decodeFailureMarkers = []string{
	"hwaccel",
	"Failed to allocate",
	"vaapi",
	"No usable decoding",
	"hardware",
	"Impossible to convert",
	"Error while decoding",
}

func looksLikeDecodeFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range decodeFailureMarkers {
		if strings.Contains(msg, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
