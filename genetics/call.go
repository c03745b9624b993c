// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genetics

import (
	"strconv"
	"strings"

	"github.com/grailbio/hailexpr/errors"
)

// A Call is a genotype call: a list of allele indices, where 0 is
// the reference allele, and whether the call is phased.
type Call struct {
	Alleles []int32
	Phased  bool
}

// NewCall returns an unphased call of the given alleles.
func NewCall(alleles ...int32) Call {
	return Call{Alleles: alleles}
}

// Ploidy returns the number of alleles in the call.
func (c Call) Ploidy() int { return len(c.Alleles) }

// Index returns the i'th allele of the call.
func (c Call) Index(i int) (int32, bool) {
	if i < 0 || i >= len(c.Alleles) {
		return 0, false
	}
	return c.Alleles[i], true
}

// IsHomRef tells whether every allele of the call is the reference.
func (c Call) IsHomRef() bool {
	if len(c.Alleles) == 0 {
		return false
	}
	for _, a := range c.Alleles {
		if a != 0 {
			return false
		}
	}
	return true
}

// IsHet tells whether the call is diploid with distinct alleles.
func (c Call) IsHet() bool {
	return len(c.Alleles) == 2 && c.Alleles[0] != c.Alleles[1]
}

// IsHomVar tells whether every allele of the call is the same
// alternate allele.
func (c Call) IsHomVar() bool {
	if len(c.Alleles) == 0 || c.Alleles[0] == 0 {
		return false
	}
	for _, a := range c.Alleles[1:] {
		if a != c.Alleles[0] {
			return false
		}
	}
	return true
}

// IsNonRef tells whether the call carries any alternate allele.
func (c Call) IsNonRef() bool { return c.NAltAlleles() > 0 }

// IsHetNonRef tells whether the call is heterozygous with two
// alternate alleles.
func (c Call) IsHetNonRef() bool {
	return c.IsHet() && c.Alleles[0] != 0 && c.Alleles[1] != 0
}

// IsHetRef tells whether the call is heterozygous with one reference
// allele.
func (c Call) IsHetRef() bool {
	return c.IsHet() && (c.Alleles[0] == 0 || c.Alleles[1] == 0)
}

// NAltAlleles returns the number of alternate alleles in the call.
func (c Call) NAltAlleles() int {
	var n int
	for _, a := range c.Alleles {
		if a != 0 {
			n++
		}
	}
	return n
}

// UnphasedDiploidGtIndex returns the genotype index of a diploid
// call, ignoring phase: the alleles j <= k map to k*(k+1)/2 + j.
func (c Call) UnphasedDiploidGtIndex() (int32, error) {
	if len(c.Alleles) != 2 {
		return 0, errors.E("unphased_diploid_gt_index", c.String(), errors.Eval,
			errors.Errorf("call has ploidy %d, expected 2", len(c.Alleles)))
	}
	j, k := c.Alleles[0], c.Alleles[1]
	if j > k {
		j, k = k, j
	}
	return k*(k+1)/2 + j, nil
}

// CallFromUnphasedDiploidGtIndex returns the unphased diploid call
// with the provided genotype index.
func CallFromUnphasedDiploidGtIndex(i int32) (Call, error) {
	if i < 0 {
		return Call{}, errors.E("unphased_diploid_gt_index_call", strconv.Itoa(int(i)), errors.Value,
			errors.New("negative genotype index"))
	}
	var k int32
	for (k+1)*(k+2)/2 <= i {
		k++
	}
	return NewCall(i-k*(k+1)/2, k), nil
}

// Equal tells whether two calls are identical, including phase.
func (c Call) Equal(d Call) bool {
	if c.Phased != d.Phased || len(c.Alleles) != len(d.Alleles) {
		return false
	}
	for i := range c.Alleles {
		if c.Alleles[i] != d.Alleles[i] {
			return false
		}
	}
	return true
}

// String renders the call in VCF notation: "0/1", "1|0", "1", and
// "-" for a call with no alleles. Phased haploid calls are rendered
// with a leading bar, "|1".
func (c Call) String() string {
	if len(c.Alleles) == 0 {
		if c.Phased {
			return "|-"
		}
		return "-"
	}
	sep := "/"
	if c.Phased {
		sep = "|"
	}
	var b strings.Builder
	if len(c.Alleles) == 1 && c.Phased {
		b.WriteString("|")
	}
	for i, a := range c.Alleles {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strconv.Itoa(int(a)))
	}
	return b.String()
}

// ParseCall parses a call rendered by Call.String.
func ParseCall(s string) (Call, error) {
	bad := func(err error) error {
		return errors.E("parse_call", s, errors.Parse, err)
	}
	switch s {
	case "-":
		return Call{}, nil
	case "|-":
		return Call{Phased: true}, nil
	case "":
		return Call{}, bad(errors.New("empty call"))
	}
	var c Call
	if s[0] == '|' {
		c.Phased = true
		s = s[1:]
	}
	var parts []string
	switch {
	case strings.Contains(s, "|") && strings.Contains(s, "/"):
		return Call{}, bad(errors.New("mixed phasing"))
	case strings.Contains(s, "|"):
		c.Phased = true
		parts = strings.Split(s, "|")
	default:
		parts = strings.Split(s, "/")
	}
	for _, p := range parts {
		a, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return Call{}, bad(err)
		}
		if a < 0 {
			return Call{}, bad(errors.Errorf("negative allele %d", a))
		}
		c.Alleles = append(c.Alleles, int32(a))
	}
	return c, nil
}
