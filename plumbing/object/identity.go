package object

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Signature is an author or committer identity: a name, an email, and the
// instant the action was taken, as recorded in a commit or tag header
// (§3: `<name> <email> <unix-seconds> <tz-offset>`).
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses b, the raw bytes following the "author "/"committer "/
// "tagger " field name, into s. Malformed input (no matching "<...>",
// or a reversed pair) leaves s untouched, matching Git's own tolerance
// for hand-edited or foreign-tool-produced headers.
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open == -1 || close == -1 || open > close {
		return
	}

	s.Name = string(bytes.TrimSpace(b[:open]))
	s.Email = string(b[open+1 : close])

	if len(b) > close+2 {
		s.decodeTimeAndTimeZone(b[close+2:])
	}
}

func (s *Signature) decodeTimeAndTimeZone(b []byte) {
	b = bytes.TrimSpace(b)
	parts := bytes.SplitN(b, []byte{' '}, 2)

	seconds, err := strconv.ParseInt(string(parts[0]), 10, 64)
	if err != nil {
		return
	}

	if len(parts) == 1 {
		s.When = time.Unix(seconds, 0).UTC()
		return
	}

	tzOffset := string(parts[1])
	if len(tzOffset) < 5 {
		s.When = time.Unix(seconds, 0).UTC()
		return
	}

	tzHours, err1 := strconv.Atoi(tzOffset[0:3])
	tzMins, err2 := strconv.Atoi(tzOffset[0:1] + tzOffset[3:5])
	if err1 != nil || err2 != nil {
		s.When = time.Unix(seconds, 0).UTC()
		return
	}

	tz := time.FixedZone("", tzHours*3600+tzMins*60)
	s.When = time.Unix(seconds, 0).In(tz)
}

// String renders s in the canonical "<name> <email> <unix> <tz>" form.
func (s *Signature) String() string {
	if s.When.IsZero() {
		return fmt.Sprintf("%s <%s>", s.Name, s.Email)
	}
	return fmt.Sprintf("%s <%s> %s", s.Name, s.Email, formatTimezone(s.When))
}

func formatTimezone(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return strconv.FormatInt(t.Unix(), 10) + " " + sign +
		twoDigits(offset/3600) + twoDigits((offset/60)%60)
}

func twoDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
