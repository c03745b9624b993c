// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package genetics defines the genomic vocabulary shared by types,
// values, and expressions: reference genomes, loci and locus
// intervals, genotype calls, and allele classification.
package genetics

import (
	"sort"
	"sync"

	"github.com/grailbio/hailexpr/errors"
)

// A ReferenceGenome names a genome build and its contigs in
// canonical order.
type ReferenceGenome struct {
	// Name is the name of the build, e.g., GRCh37.
	Name string
	// Contigs lists the contig names in sort order.
	Contigs []string
	// Lengths maps each contig to its length in bases.
	Lengths map[string]int32

	index map[string]int
}

// NewReferenceGenome returns a new reference genome with the given
// contigs and lengths. The lengths slice is parallel to contigs.
func NewReferenceGenome(name string, contigs []string, lengths []int32) *ReferenceGenome {
	if len(contigs) != len(lengths) {
		panic("genetics.NewReferenceGenome: contigs and lengths differ in size")
	}
	rg := &ReferenceGenome{
		Name:    name,
		Contigs: contigs,
		Lengths: make(map[string]int32, len(contigs)),
		index:   make(map[string]int, len(contigs)),
	}
	for i, c := range contigs {
		rg.Lengths[c] = lengths[i]
		rg.index[c] = i
	}
	return rg
}

// HasContig tells whether the contig is defined by the genome.
func (rg *ReferenceGenome) HasContig(contig string) bool {
	_, ok := rg.index[contig]
	return ok
}

// ContigIndex returns the sort index of the provided contig, or -1 if
// it is not defined.
func (rg *ReferenceGenome) ContigIndex(contig string) int {
	i, ok := rg.index[contig]
	if !ok {
		return -1
	}
	return i
}

// CheckLocus returns a Value error if the locus does not
// name a position on this reference genome.
func (rg *ReferenceGenome) CheckLocus(l Locus) error {
	n, ok := rg.Lengths[l.Contig]
	if !ok {
		return errors.E("locus", l.String(), errors.Value,
			errors.Errorf("contig %q is not in the reference genome %s", l.Contig, rg.Name))
	}
	if l.Position < 1 || l.Position > n {
		return errors.E("locus", l.String(), errors.Value,
			errors.Errorf("position %d is out of range [1, %d] for contig %s", l.Position, n, l.Contig))
	}
	return nil
}

func (rg *ReferenceGenome) String() string { return rg.Name }

var (
	mu      sync.Mutex
	genomes = map[string]*ReferenceGenome{}
)

// Register registers a reference genome so that it may be used in
// locus types. Register panics if a genome with the same name is
// already registered.
func Register(rg *ReferenceGenome) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := genomes[rg.Name]; ok {
		panic("genetics.Register: reference genome " + rg.Name + " already registered")
	}
	genomes[rg.Name] = rg
}

// Lookup returns the registered reference genome with the given name.
func Lookup(name string) (*ReferenceGenome, bool) {
	mu.Lock()
	defer mu.Unlock()
	rg, ok := genomes[name]
	return rg, ok
}

// Names returns the sorted names of the registered reference genomes.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(genomes))
	for name := range genomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin reference genomes.
var (
	GRCh37 = NewReferenceGenome("GRCh37",
		[]string{
			"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
			"13", "14", "15", "16", "17", "18", "19", "20", "21", "22",
			"X", "Y", "MT",
		},
		[]int32{
			249250621, 243199373, 198022430, 191154276, 180915260, 171115067,
			159138663, 146364022, 141213431, 135534747, 135006516, 133851895,
			115169878, 107349540, 102531392, 90354753, 81195210, 78077248,
			59128983, 63025520, 48129895, 51304566,
			155270560, 59373566, 16569,
		})

	GRCh38 = NewReferenceGenome("GRCh38",
		[]string{
			"chr1", "chr2", "chr3", "chr4", "chr5", "chr6", "chr7", "chr8",
			"chr9", "chr10", "chr11", "chr12", "chr13", "chr14", "chr15",
			"chr16", "chr17", "chr18", "chr19", "chr20", "chr21", "chr22",
			"chrX", "chrY", "chrM",
		},
		[]int32{
			248956422, 242193529, 198295559, 190214555, 181538259, 170805979,
			159345973, 145138636, 138394717, 133797422, 135086622, 133275309,
			114364328, 107043718, 101991189, 90338345, 83257441, 80373285,
			58617616, 64444167, 46709983, 50818468,
			156040895, 57227415, 16569,
		})
)

// Default is the reference genome used when none is configured.
var Default = GRCh37

func init() {
	Register(GRCh37)
	Register(GRCh38)
}
