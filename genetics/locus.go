// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genetics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/hailexpr/errors"
)

// A Locus is a 1-based position on a contig.
type Locus struct {
	Contig   string
	Position int32
}

// String renders the locus as contig:position.
func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", l.Contig, l.Position)
}

// Compare orders loci by contig and then by position. Contigs are
// ordered by their index in rg; contigs that are not in rg sort
// after those that are, by name. If rg is nil, the default
// reference genome is used.
func (l Locus) Compare(rg *ReferenceGenome, m Locus) int {
	if rg == nil {
		rg = Default
	}
	if l.Contig != m.Contig {
		i, j := rg.ContigIndex(l.Contig), rg.ContigIndex(m.Contig)
		switch {
		case i >= 0 && j >= 0:
			return i - j
		case i >= 0:
			return -1
		case j >= 0:
			return 1
		case l.Contig < m.Contig:
			return -1
		default:
			return 1
		}
	}
	switch {
	case l.Position < m.Position:
		return -1
	case l.Position > m.Position:
		return 1
	}
	return 0
}

// ParseLocus parses a locus of the form contig:position and
// validates it against the reference genome.
func ParseLocus(s string, rg *ReferenceGenome) (Locus, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return Locus{}, errors.E("parse_locus", s, errors.Parse, errors.New("expected contig:position"))
	}
	pos, err := strconv.ParseInt(s[i+1:], 10, 32)
	if err != nil {
		return Locus{}, errors.E("parse_locus", s, errors.Parse, err)
	}
	l := Locus{Contig: s[:i], Position: int32(pos)}
	if err := rg.CheckLocus(l); err != nil {
		return Locus{}, err
	}
	return l, nil
}

// A LocusInterval is a contiguous range of loci on a single contig.
type LocusInterval struct {
	Start, End                 Locus
	IncludesStart, IncludesEnd bool
}

// String renders the interval in mathematical notation.
func (iv LocusInterval) String() string {
	lo, hi := "(", ")"
	if iv.IncludesStart {
		lo = "["
	}
	if iv.IncludesEnd {
		hi = "]"
	}
	return lo + iv.Start.String() + "-" + iv.End.String() + hi
}

// ParseLocusInterval parses an interval of loci. The accepted forms
// are:
//
//	contig                  the whole contig
//	contig:start-end        positions on one contig
//	contig:start-contig:end
//	contig:start-end        where start or end may be the keywords
//	                        "start" and "end"
//
// Intervals include their start and exclude their end, except that an
// interval ending with the keyword "end" covers the last base of the
// contig.
func ParseLocusInterval(s string, rg *ReferenceGenome) (LocusInterval, error) {
	bad := func(msg string) error {
		return errors.E("parse_locus_interval", s, errors.Parse, errors.New(msg))
	}
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		n, ok := rg.Lengths[s]
		if !ok {
			return LocusInterval{}, errors.E("parse_locus_interval", s, errors.Value,
				errors.Errorf("contig %q is not in the reference genome %s", s, rg.Name))
		}
		return LocusInterval{
			Start:         Locus{s, 1},
			End:           Locus{s, n},
			IncludesStart: true,
			IncludesEnd:   true,
		}, nil
	}
	contig := s[:colon]
	n, ok := rg.Lengths[contig]
	if !ok {
		return LocusInterval{}, errors.E("parse_locus_interval", s, errors.Value,
			errors.Errorf("contig %q is not in the reference genome %s", contig, rg.Name))
	}
	rest := s[colon+1:]
	dash := strings.IndexByte(rest, '-')
	if dash <= 0 || dash == len(rest)-1 {
		return LocusInterval{}, bad("expected contig:start-end")
	}
	startText, endText := rest[:dash], rest[dash+1:]
	endContig := contig
	if i := strings.LastIndexByte(endText, ':'); i >= 0 {
		endContig, endText = endText[:i], endText[i+1:]
		if endContig != contig {
			return LocusInterval{}, bad("interval spans contigs " + contig + " and " + endContig)
		}
	}
	iv := LocusInterval{IncludesStart: true}
	switch startText {
	case "start":
		iv.Start = Locus{contig, 1}
	default:
		pos, err := strconv.ParseInt(startText, 10, 32)
		if err != nil {
			return LocusInterval{}, bad("invalid start position " + startText)
		}
		iv.Start = Locus{contig, int32(pos)}
	}
	switch endText {
	case "end":
		iv.End = Locus{contig, n}
		iv.IncludesEnd = true
	default:
		pos, err := strconv.ParseInt(endText, 10, 32)
		if err != nil {
			return LocusInterval{}, bad("invalid end position " + endText)
		}
		iv.End = Locus{contig, int32(pos)}
	}
	if err := rg.CheckLocus(iv.Start); err != nil {
		return LocusInterval{}, err
	}
	// The exclusive end may lie one past the last base.
	if iv.End.Position < 1 || iv.End.Position > n+1 {
		return LocusInterval{}, errors.E("parse_locus_interval", s, errors.Value,
			errors.Errorf("end position %d is out of range for contig %s", iv.End.Position, contig))
	}
	if iv.End.Position < iv.Start.Position {
		return LocusInterval{}, errors.E("parse_locus_interval", s, errors.Value,
			errors.New("end precedes start"))
	}
	return iv, nil
}

// Contains tells whether the locus lies within the interval.
func (iv LocusInterval) Contains(rg *ReferenceGenome, l Locus) bool {
	c := iv.Start.Compare(rg, l)
	if c > 0 || c == 0 && !iv.IncludesStart {
		return false
	}
	c = l.Compare(rg, iv.End)
	return c < 0 || c == 0 && iv.IncludesEnd
}
