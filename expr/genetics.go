// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"strings"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// CallOf constructs a call from int32 allele expressions.
func CallOf(phased bool, alleles ...*Expr) *Expr {
	return apply("call", append([]*Expr{Bool(phased)}, alleles...)...)
}

// UnphasedDiploidGtIndexCall returns the unphased diploid call with
// genotype index i.
func UnphasedDiploidGtIndexCall(i *Expr) *Expr { return apply("unphased_diploid_gt_index_call", i) }

// ParseCall parses a call from its string form, e.g., "0/1" or
// "1|2".
func ParseCall(s *Expr) *Expr { return apply("parse_call", s) }

// Ploidy returns the number of alleles of call e.
func (e *Expr) Ploidy() *Expr { return apply("ploidy", e) }

// Phased tells whether call e is phased.
func (e *Expr) Phased() *Expr { return apply("phased", e) }

// IsHomRef tells whether call e is homozygous reference.
func (e *Expr) IsHomRef() *Expr { return apply("is_hom_ref", e) }

// IsHet tells whether call e is heterozygous.
func (e *Expr) IsHet() *Expr { return apply("is_het", e) }

// IsHomVar tells whether call e is homozygous variant.
func (e *Expr) IsHomVar() *Expr { return apply("is_hom_var", e) }

// IsNonRef tells whether call e has a non-reference allele.
func (e *Expr) IsNonRef() *Expr { return apply("is_non_ref", e) }

// IsHetNonRef tells whether call e is heterozygous with two
// non-reference alleles.
func (e *Expr) IsHetNonRef() *Expr { return apply("is_het_non_ref", e) }

// IsHetRef tells whether call e is heterozygous with one reference
// allele.
func (e *Expr) IsHetRef() *Expr { return apply("is_het_ref", e) }

// NAltAlleles returns the number of non-reference alleles of call e.
func (e *Expr) NAltAlleles() *Expr { return apply("n_alt_alleles", e) }

// UnphasedDiploidGtIndex returns the genotype index of diploid call
// e; other ploidies are evaluation errors.
func (e *Expr) UnphasedDiploidGtIndex() *Expr { return apply("unphased_diploid_gt_index", e) }

// IsSNP tells whether ref and alt alleles form a SNP.
func IsSNP(ref, alt *Expr) *Expr { return apply("is_snp", ref, alt) }

// IsMNP tells whether ref and alt alleles form an MNP.
func IsMNP(ref, alt *Expr) *Expr { return apply("is_mnp", ref, alt) }

// IsInsertion tells whether ref and alt alleles form an insertion.
func IsInsertion(ref, alt *Expr) *Expr { return apply("is_insertion", ref, alt) }

// IsDeletion tells whether ref and alt alleles form a deletion.
func IsDeletion(ref, alt *Expr) *Expr { return apply("is_deletion", ref, alt) }

// IsIndel tells whether ref and alt alleles form an insertion or a
// deletion.
func IsIndel(ref, alt *Expr) *Expr { return apply("is_indel", ref, alt) }

// IsComplex tells whether ref and alt alleles form a complex
// variant.
func IsComplex(ref, alt *Expr) *Expr { return apply("is_complex", ref, alt) }

// IsStar tells whether either allele is the star allele.
func IsStar(ref, alt *Expr) *Expr { return apply("is_star", ref, alt) }

// IsTransition tells whether ref and alt alleles form a transition.
func IsTransition(ref, alt *Expr) *Expr { return apply("is_transition", ref, alt) }

// IsTransversion tells whether ref and alt alleles form a
// transversion.
func IsTransversion(ref, alt *Expr) *Expr { return apply("is_transversion", ref, alt) }

// IsStrandAmbiguous tells whether ref and alt alleles are
// complementary bases.
func IsStrandAmbiguous(ref, alt *Expr) *Expr { return apply("is_strand_ambiguous", ref, alt) }

// AlleleType classifies ref and alt alleles, e.g., "SNP".
func AlleleType(ref, alt *Expr) *Expr { return apply("allele_type", ref, alt) }

// Hamming returns the number of mismatches between strings a and b,
// which is missing if they differ in length.
func Hamming(a, b *Expr) *Expr { return apply("hamming", a, b) }

// GPDosage returns the dosage gp[1] + 2*gp[2] of a diploid
// genotype-probability array.
func GPDosage(gp *Expr) *Expr { return apply("gp_dosage", gp) }

// ParseVariant parses a variant of the form contig:position:ref:alt
// into a struct{locus, alleles} on the named reference genome.
func ParseVariant(s *Expr, genome string) *Expr { return apply("parse_variant", s, Str(genome)) }

// ParseLocus parses a locus of the form contig:position.
func ParseLocus(s *Expr, genome string) *Expr { return apply("parse_locus", s, Str(genome)) }

// ParseLocusInterval parses a locus interval; see
// genetics.ParseLocusInterval.
func ParseLocusInterval(s *Expr, genome string) *Expr {
	return apply("parse_locus_interval", s, Str(genome))
}

// Locus constructs a locus on the named reference genome. Positions
// outside the contig are evaluation errors.
func Locus(contig, pos *Expr, genome string) *Expr { return apply("locus", contig, pos, Str(genome)) }

// Contig returns the contig of locus e.
func (e *Expr) Contig() *Expr { return apply("contig", e) }

// Position returns the position of locus e.
func (e *Expr) Position() *Expr { return apply("position", e) }

// Interval constructs an interval from start to end, whose types
// are unified.
func Interval(start, end *Expr, includesStart, includesEnd bool) *Expr {
	return apply("interval", start, end, Bool(includesStart), Bool(includesEnd))
}

// Start returns the start of interval e.
func (e *Expr) Start() *Expr { return apply("start", e) }

// End returns the end of interval e.
func (e *Expr) End() *Expr { return apply("end", e) }

// IncludesStart tells whether interval e contains its start.
func (e *Expr) IncludesStart() *Expr { return apply("includes_start", e) }

// IncludesEnd tells whether interval e contains its end.
func (e *Expr) IncludesEnd() *Expr { return apply("includes_end", e) }

// Overlaps tells whether intervals e and f share a point.
func (e *Expr) Overlaps(f *Expr) *Expr { return apply("overlaps", e, f) }

func callPred(fn func(genetics.Call) bool) *builtin {
	return &builtin{
		Typecheck: fixed(types.Bool, types.CallKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fn(args[0].(genetics.Call)), nil
		},
	}
}

func allelePred(fn func(ref, alt string) bool) *builtin {
	return &builtin{
		Typecheck: fixed(types.Bool, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fn(args[0].(string), args[1].(string)), nil
		},
	}
}

// genomeArg returns the reference genome named by the constant
// string argument arg.
func genomeArg(arg *Expr) (string, *types.T) {
	v, ok := constant(arg)
	if !ok || arg.Type.Kind != types.StrKind {
		return "", types.Errorf("reference genome must be a constant string")
	}
	name := v.(string)
	if t := types.Locus(name); t.Kind == types.ErrorKind {
		return "", t
	}
	return name, nil
}

func genomeOf(e *Expr) *genetics.ReferenceGenome {
	rg, _ := genetics.Lookup(e.Val.(string))
	return rg
}

// parser returns a builtin parsing str arguments on the reference
// genome given by the last argument.
func parser(result func(genome string) *types.T, parse func(s string, rg *genetics.ReferenceGenome) (values.T, error)) *builtin {
	return &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if err := checkArgs(args, types.StrKind, types.StrKind); err != nil {
				return err
			}
			genome, err := genomeArg(args[1])
			if err != nil {
				return err
			}
			return result(genome)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			v, err := parse(args[0].(string), genomeOf(e.Args[1]))
			if err != nil {
				return nil, errors.E(errors.Eval, err)
			}
			return v, nil
		},
	}
}

func variantType(genome string) *types.T {
	return types.Struct(types.F("locus", types.Locus(genome)), types.F("alleles", types.Array(types.Str)))
}

func parseVariant(s string, rg *genetics.ReferenceGenome) (values.T, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, errors.E("parse_variant", s, errors.Parse,
			errors.New("expected contig:position:ref:alt[,alt...]"))
	}
	n := len(parts)
	l, err := genetics.ParseLocus(strings.Join(parts[:n-2], ":"), rg)
	if err != nil {
		return nil, err
	}
	alleles := values.Array{parts[n-2]}
	for _, alt := range strings.Split(parts[n-1], ",") {
		alleles = append(alleles, alt)
	}
	return values.Struct{"locus": l, "alleles": alleles}, nil
}

func init() {
	register("call", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) == 0 || args[0].Type.Kind != types.BoolKind {
				return types.Errorf("expected phasing")
			}
			for i, arg := range args[1:] {
				if arg.Type.Kind != types.Int32Kind {
					return types.Errorf("allele %d: expected int32, got %v", i, arg.Type)
				}
			}
			return types.Call
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			c := genetics.Call{Phased: args[0].(bool), Alleles: make([]int32, len(args)-1)}
			for i := range c.Alleles {
				c.Alleles[i] = args[i+1].(int32)
			}
			return c, nil
		},
	})
	register("unphased_diploid_gt_index_call", &builtin{
		Typecheck: fixed(types.Call, types.Int32Kind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			c, err := genetics.CallFromUnphasedDiploidGtIndex(args[0].(int32))
			if err != nil {
				return nil, errors.E(errors.Eval, err)
			}
			return c, nil
		},
	})
	register("parse_call", &builtin{
		Typecheck: fixed(types.Call, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			c, err := genetics.ParseCall(args[0].(string))
			if err != nil {
				return nil, errors.E(errors.Eval, err)
			}
			return c, nil
		},
	})
	register("ploidy", &builtin{
		Typecheck: fixed(types.Int32, types.CallKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return int32(args[0].(genetics.Call).Ploidy()), nil
		},
	})
	register("n_alt_alleles", &builtin{
		Typecheck: fixed(types.Int32, types.CallKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return int32(args[0].(genetics.Call).NAltAlleles()), nil
		},
	})
	register("unphased_diploid_gt_index", &builtin{
		Typecheck: fixed(types.Int32, types.CallKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			i, err := args[0].(genetics.Call).UnphasedDiploidGtIndex()
			if err != nil {
				return nil, errors.E(errors.Eval, err)
			}
			return i, nil
		},
	})
	register("phased", callPred(func(c genetics.Call) bool { return c.Phased }))
	register("is_hom_ref", callPred(genetics.Call.IsHomRef))
	register("is_het", callPred(genetics.Call.IsHet))
	register("is_hom_var", callPred(genetics.Call.IsHomVar))
	register("is_non_ref", callPred(genetics.Call.IsNonRef))
	register("is_het_non_ref", callPred(genetics.Call.IsHetNonRef))
	register("is_het_ref", callPred(genetics.Call.IsHetRef))

	register("is_snp", allelePred(genetics.IsSNP))
	register("is_mnp", allelePred(genetics.IsMNP))
	register("is_insertion", allelePred(genetics.IsInsertion))
	register("is_deletion", allelePred(genetics.IsDeletion))
	register("is_indel", allelePred(genetics.IsIndel))
	register("is_complex", allelePred(genetics.IsComplex))
	register("is_star", allelePred(genetics.IsStar))
	register("is_transition", allelePred(genetics.IsTransition))
	register("is_transversion", allelePred(genetics.IsTransversion))
	register("is_strand_ambiguous", allelePred(genetics.IsStrandAmbiguous))
	register("allele_type", &builtin{
		Typecheck: fixed(types.Str, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return genetics.Classify(args[0].(string), args[1].(string)).String(), nil
		},
	})
	register("hamming", &builtin{
		Typecheck: fixed(types.Int32, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			n, ok := genetics.Hamming(args[0].(string), args[1].(string))
			if !ok {
				return values.Missing, nil
			}
			return n, nil
		},
	})
	register("gp_dosage", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 || !args[0].Type.Equal(types.Array(types.Float64)) {
				return types.Errorf("expected array<float64>")
			}
			return types.Float64
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			gp := args[0].(values.Array)
			if len(gp) != 3 {
				return nil, errors.E(errors.Eval,
					fmt.Errorf("expected 3 genotype probabilities, got %d", len(gp)))
			}
			if values.IsMissing(gp[1]) || values.IsMissing(gp[2]) {
				return values.Missing, nil
			}
			return gp[1].(float64) + 2*gp[2].(float64), nil
		},
	})
	register("parse_variant", parser(variantType, parseVariant))
	register("parse_locus", parser(types.Locus, func(s string, rg *genetics.ReferenceGenome) (values.T, error) {
		return genetics.ParseLocus(s, rg)
	}))
	register("parse_locus_interval", parser(
		func(genome string) *types.T { return types.Interval(types.Locus(genome)) },
		func(s string, rg *genetics.ReferenceGenome) (values.T, error) {
			iv, err := genetics.ParseLocusInterval(s, rg)
			if err != nil {
				return nil, err
			}
			return values.LocusInterval(iv), nil
		}))
	register("locus", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if err := checkArgs(args, types.StrKind, types.Int32Kind, types.StrKind); err != nil {
				return err
			}
			genome, err := genomeArg(args[2])
			if err != nil {
				return err
			}
			return types.Locus(genome)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			l := genetics.Locus{Contig: args[0].(string), Position: args[1].(int32)}
			if err := genomeOf(e.Args[2]).CheckLocus(l); err != nil {
				return nil, errors.E(errors.Eval, err)
			}
			return l, nil
		},
	})
	register("contig", &builtin{
		Typecheck: fixed(types.Str, types.LocusKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return args[0].(genetics.Locus).Contig, nil
		},
	})
	register("position", &builtin{
		Typecheck: fixed(types.Int32, types.LocusKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return args[0].(genetics.Locus).Position, nil
		},
	})
	register("interval", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 4 {
				return types.Errorf("expected 4 arguments, got %d", len(args))
			}
			if args[2].Type.Kind != types.BoolKind || args[3].Type.Kind != types.BoolKind {
				return types.Errorf("interval bounds inclusion must be bool")
			}
			return types.Interval(types.Unify(args[0].Type, args[1].Type))
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			pt := e.Type.Elem
			return values.Interval{
				Start:         values.Convert(args[0], e.Args[0].Type, pt),
				End:           values.Convert(args[1], e.Args[1].Type, pt),
				IncludesStart: args[2].(bool),
				IncludesEnd:   args[3].(bool),
			}, nil
		},
	})
	for _, name := range []string{"start", "end"} {
		start := name == "start"
		register(name, &builtin{
			Typecheck: func(args []*Expr) *types.T {
				if err := checkArgs(args, types.IntervalKind); err != nil {
					return err
				}
				return args[0].Type.Elem
			},
			Eval: func(e *Expr, args []values.T) (values.T, error) {
				if start {
					return args[0].(values.Interval).Start, nil
				}
				return args[0].(values.Interval).End, nil
			},
		})
	}
	register("includes_start", &builtin{
		Typecheck: fixed(types.Bool, types.IntervalKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return args[0].(values.Interval).IncludesStart, nil
		},
	})
	register("includes_end", &builtin{
		Typecheck: fixed(types.Bool, types.IntervalKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return args[0].(values.Interval).IncludesEnd, nil
		},
	})
	register("overlaps", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if err := checkArgs(args, types.IntervalKind, types.IntervalKind); err != nil {
				return err
			}
			if types.Unify(args[0].Type, args[1].Type).Kind == types.ErrorKind {
				return types.Errorf("cannot compare %v and %v", args[0].Type, args[1].Type)
			}
			return types.Bool
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			t := types.Unify(e.Args[0].Type, e.Args[1].Type)
			iv := values.Convert(args[0], e.Args[0].Type, t).(values.Interval)
			jv := values.Convert(args[1], e.Args[1].Type, t).(values.Interval)
			cmp := pointCompare(t.Elem)
			return !intervalBefore(iv, jv, cmp) && !intervalBefore(jv, iv, cmp), nil
		},
	})
}
