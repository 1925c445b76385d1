package platform

import (
	"fmt"
	"os"
	"strings"
)

type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeOffline, ModeOnline:
		return m, nil
	default:
		return "", fmt.Errorf("unknown storage mode %q", s)
	}
}

// Detector decides whether completed interviews are queued locally. In auto
// mode a mobile device queues.
type Detector struct {
	mode   Mode
	lookup func(string) (string, bool)
}

func NewDetector(mode Mode) *Detector {
	return &Detector{mode: mode, lookup: os.LookupEnv}
}

// NewDetectorWithEnv is NewDetector with a custom environment lookup.
func NewDetectorWithEnv(mode Mode, lookup func(string) (string, bool)) *Detector {
	return &Detector{mode: mode, lookup: lookup}
}

func (d *Detector) Offline() bool {
	switch d.mode {
	case ModeOffline:
		return true
	case ModeOnline:
		return false
	default:
		return d.Mobile()
	}
}

// Mobile reports whether the process runs on an Android or iOS style device.
func (d *Detector) Mobile() bool {
	if _, ok := d.lookup("ANDROID_STORAGE"); ok {
		return true
	}
	home, _ := d.lookup("HOME")
	return strings.Contains(home, "Mobile")
}
