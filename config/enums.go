package config

import (
	"fmt"
	"strings"
)

// Resolution is the output frame size preset.
type Resolution string

const (
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
)

// Dimensions maps the preset to pixels. Unknown values fall back to 1080p.
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Res720p:
		return 1280, 720
	default:
		return 1920, 1080
	}
}

func (r Resolution) Valid() bool { return r == Res720p || r == Res1080p }

func (r Resolution) String() string { return string(r) }

// Set implements pflag.Value.
func (r *Resolution) Set(s string) error {
	v, err := ParseResolution(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Type implements pflag.Value.
func (r *Resolution) Type() string { return "resolution" }

// ParseResolution accepts "720p", "1080p" or the raw "WxH" forms.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "720p", "720", "1280x720":
		return Res720p, nil
	case "1080p", "1080", "1920x1080":
		return Res1080p, nil
	}
	return "", fmt.Errorf("unknown resolution %q (want 720p or 1080p)", s)
}

// Eye selects which headset view is requested from the backend.
type Eye string

const (
	EyeLeft  Eye = "Left"
	EyeRight Eye = "Right"
	EyeBoth  Eye = "Both"
)

func (e Eye) Valid() bool { return e == EyeLeft || e == EyeRight || e == EyeBoth }

func (e Eye) String() string { return string(e) }

// Set implements pflag.Value.
func (e *Eye) Set(s string) error {
	v, err := ParseEye(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Type implements pflag.Value.
func (e *Eye) Type() string { return "eye" }

// ParseEye is case-insensitive.
func ParseEye(s string) (Eye, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return EyeLeft, nil
	case "right", "r":
		return EyeRight, nil
	case "both", "b":
		return EyeBoth, nil
	}
	return "", fmt.Errorf("unknown eye %q (want Left, Right or Both)", s)
}
