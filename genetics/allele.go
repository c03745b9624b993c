// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genetics

import "strings"

// AlleleType is the classification of an alternate allele with
// respect to its reference.
type AlleleType int

const (
	// Unknown alleles could not be classified.
	Unknown AlleleType = iota
	// SNP is a single nucleotide polymorphism.
	SNP
	// MNP is a multi-nucleotide polymorphism.
	MNP
	// Insertion adds bases after a shared leading base.
	Insertion
	// Deletion removes bases after a shared leading base.
	Deletion
	// Complex is any other substitution.
	Complex
	// Star denotes an allele spanning an upstream deletion.
	Star
)

var alleleTypeNames = [...]string{
	Unknown:   "Unknown",
	SNP:       "SNP",
	MNP:       "MNP",
	Insertion: "Insertion",
	Deletion:  "Deletion",
	Complex:   "Complex",
	Star:      "Star",
}

func (t AlleleType) String() string { return alleleTypeNames[t] }

// Classify classifies the alternate allele alt against ref.
func Classify(ref, alt string) AlleleType {
	switch {
	case ref == "*" || alt == "*":
		return Star
	case len(ref) == 0 || len(alt) == 0:
		return Unknown
	case len(ref) == len(alt):
		var n int
		for i := 0; i < len(ref); i++ {
			if ref[i] != alt[i] {
				n++
			}
		}
		switch {
		case n == 1:
			return SNP
		case n > 1:
			return MNP
		}
		return Unknown
	case isInsertion(ref, alt):
		return Insertion
	case isInsertion(alt, ref):
		return Deletion
	}
	return Complex
}

func isInsertion(ref, alt string) bool {
	return len(ref) < len(alt) && ref[0] == alt[0] && strings.HasSuffix(alt, ref[1:])
}

// IsSNP tells whether alt is a single nucleotide substitution of ref.
func IsSNP(ref, alt string) bool { return Classify(ref, alt) == SNP }

// IsMNP tells whether alt is a multi-nucleotide substitution of ref.
func IsMNP(ref, alt string) bool { return Classify(ref, alt) == MNP }

// IsInsertion tells whether alt is an insertion relative to ref.
func IsInsertion(ref, alt string) bool { return Classify(ref, alt) == Insertion }

// IsDeletion tells whether alt is a deletion relative to ref.
func IsDeletion(ref, alt string) bool { return Classify(ref, alt) == Deletion }

// IsIndel tells whether alt is an insertion or a deletion.
func IsIndel(ref, alt string) bool {
	t := Classify(ref, alt)
	return t == Insertion || t == Deletion
}

// IsComplex tells whether alt is a complex substitution of ref.
func IsComplex(ref, alt string) bool { return Classify(ref, alt) == Complex }

// IsStar tells whether either allele is the star allele.
func IsStar(ref, alt string) bool { return Classify(ref, alt) == Star }

// IsTransition tells whether the SNP is a purine to purine or
// pyrimidine to pyrimidine change.
func IsTransition(ref, alt string) bool {
	if !IsSNP(ref, alt) {
		return false
	}
	r, a := mismatch(ref, alt)
	return isTransition(r, a)
}

// IsTransversion tells whether the SNP changes a purine into a
// pyrimidine or vice versa.
func IsTransversion(ref, alt string) bool {
	if !IsSNP(ref, alt) {
		return false
	}
	r, a := mismatch(ref, alt)
	return !isTransition(r, a)
}

// IsStrandAmbiguous tells whether the single base alleles are
// complementary, so that the strand cannot be inferred.
func IsStrandAmbiguous(ref, alt string) bool {
	if len(ref) != 1 || len(alt) != 1 {
		return false
	}
	switch ref + alt {
	case "AT", "TA", "CG", "GC":
		return true
	}
	return false
}

// Hamming returns the number of positions at which two strings of
// equal length differ, and false if the lengths differ.
func Hamming(a, b string) (int32, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var n int32
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return n, true
}

func mismatch(ref, alt string) (byte, byte) {
	for i := 0; i < len(ref); i++ {
		if ref[i] != alt[i] {
			return ref[i], alt[i]
		}
	}
	return 0, 0
}

func isTransition(r, a byte) bool {
	switch string([]byte{r, a}) {
	case "AG", "GA", "CT", "TC":
		return true
	}
	return false
}
