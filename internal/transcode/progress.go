package transcode

import (
	"strconv"
	"strings"
	"time"
)

// Update is one parsed progress report from FFmpeg.
type Update struct {
	Percent  float64 // 0-100, -1 when the source duration is unknown
	OutTime  time.Duration
	Speed    string
	Finished bool
}

// progressParser folds FFmpeg -progress key=value lines into updates. FFmpeg
// emits blocks of lines terminated by a progress=continue|end line; Feed
// returns true when such a terminator completes a report.
type progressParser struct {
	total   time.Duration
	outTime time.Duration
	speed   string
}

func newProgressParser(durationSeconds float64) *progressParser {
	var total time.Duration
	if durationSeconds > 0 {
		total = time.Duration(durationSeconds * float64(time.Second))
	}
	return &progressParser{total: total}
}

func (p *progressParser) Feed(line string) (Update, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return Update{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us":
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.outTime = time.Duration(us) * time.Microsecond
		}
	case "out_time_ms":
		// Carries microseconds despite the name; only used when out_time_us
		// is absent (older FFmpeg builds emit one or the other).
		if p.outTime == 0 {
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				p.outTime = time.Duration(us) * time.Microsecond
			}
		}
	case "speed":
		if value != "" && value != "N/A" {
			p.speed = value
		}
	case "progress":
		finished := value == "end"
		update := Update{
			Percent:  p.percent(finished),
			OutTime:  p.outTime,
			Speed:    p.speed,
			Finished: finished,
		}
		return update, true
	}
	return Update{}, false
}

func (p *progressParser) percent(finished bool) float64 {
	if finished {
		return 100
	}
	if p.total <= 0 {
		return -1
	}
	percent := float64(p.outTime) / float64(p.total) * 100
	if percent < 0 {
		return 0
	}
	// Cap running reports below 100 so completion is unambiguous.
	if percent > 99.9 {
		return 99.9
	}
	return percent
}
