package view

import (
	"fmt"
	"time"

	"github.com/soocke/xr-mirror-go/ui/theme"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats updates mirroring durations and the displayed frame rate.
type SessionStats interface {
	SetSession(d time.Duration)
	SetTotal(d time.Duration)
	SetRate(fps float64)
}

type sessionStats struct {
	sessionLbl *TLabelWidget
	totalLbl   *TLabelWidget
	rateLbl    *TLabelWidget
	lastRate   int
}

// NewSessionStats creates the labels at (row, startCol..startCol+2) inside
// parent, or relative to the App root when parent is nil.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{
		sessionLbl: TLabel(Width(14), Style(theme.StyleStatsLabel)),
		totalLbl:   TLabel(Width(14), Style(theme.StyleStatsLabel)),
		rateLbl:    TLabel(Width(8), Style(theme.StyleStatsLabel)),
		lastRate:   -1,
	}
	for i, l := range []*TLabelWidget{s.sessionLbl, s.totalLbl, s.rateLbl} {
		if parent != nil {
			Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.sessionLbl.Configure(Txt("Session: 00:00"))
	s.totalLbl.Configure(Txt("Total: 00:00"))
	s.rateLbl.Configure(Txt("0 fps"))
	return s
}

// SetSession updates the session duration display.
func (s *sessionStats) SetSession(d time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Session: " + clock(d)))
}

// SetTotal updates the total duration display.
func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt("Total: " + clock(d)))
}

func (s *sessionStats) SetRate(fps float64) {
	if s == nil || s.rateLbl == nil {
		return
	}
	r := int(fps + 0.5)
	if r == s.lastRate {
		return
	}
	s.lastRate = r
	s.rateLbl.Configure(Txt(fmt.Sprintf("%d fps", r)))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	min, sec := seconds/60, seconds%60
	return fmt.Sprintf("%02d:%02d", min, sec)
}
