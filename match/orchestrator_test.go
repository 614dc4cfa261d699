package match_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/match"
	"github.com/katalvlaran/lvmatch/partition"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

func uniform(n int, w float64) []item.Item {
	out := make([]item.Item, n)
	for i := range out {
		out[i] = item.New(fmt.Sprintf("p%d", i+1), w)
	}

	return out
}

func players() []item.Item {
	return []item.Item{
		item.New("ann", 1200), item.New("bob", 1850),
		item.New("cid", 1210), item.New("dee", 1800),
	}
}

func groupIDs(d *match.Decision) [][]string {
	out := make([][]string, len(d.Grouping.Groups))
	for i, g := range d.Grouping.Groups {
		out[i] = g.ItemIDs
	}

	return out
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx context.Context
		reg *prometheus.Registry
		orc *match.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = prometheus.NewRegistry()
		var err error
		orc, err = match.New(gonumlp.NewSolver(),
			match.WithLogger(GinkgoLogr),
			match.WithRegistry(reg),
			match.WithTracerProvider(noop.NewTracerProvider()),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("balance rounds", func() {
		It("splits six equal items into three balanced pairs", func() {
			d, err := orc.ComputeGrouping(ctx, uniform(6, 10), match.RoundSpec{
				GroupCount: 3, MinSize: 2, MaxSize: 2, BalanceTarget: match.Balance(0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.State).To(Equal(match.StateSolved))
			Expect(d.Trace).To(Equal([]match.State{
				match.StateReceived, match.StateValidated, match.StateSolvingExact, match.StateSolved,
			}))
			Expect(d.Grouping.Groups).To(HaveLen(3))
			for _, g := range d.Grouping.Groups {
				Expect(g.ItemIDs).To(HaveLen(2))
				Expect(g.Sum).To(BeNumerically("==", 20))
			}
			Expect(d.Provenance.Spread).To(BeZero())
			Expect(d.Provenance.Path).To(Equal(match.PathPartition))
			Expect(d.Provenance.Method).To(Equal(partition.MethodExact))
			Expect(d.Provenance.Exact).To(BeTrue())
		})

		It("reaches spread zero on [4,5,3,2]", func() {
			items := []item.Item{item.New("a", 4), item.New("b", 5), item.New("c", 3), item.New("d", 2)}
			d, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{GroupCount: 2, BalanceTarget: match.Balance(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Provenance.Spread).To(BeZero())
			Expect(groupIDs(d)).To(Equal([][]string{{"a", "c"}, {"b", "d"}}))
		})

		It("fills every group to its minimum when the bounds leave slack", func() {
			items := []item.Item{item.New("a", 10), item.New("b", 1), item.New("c", 1), item.New("d", 1)}
			d, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{
				GroupCount: 2, MinSize: 2, MaxSize: 3, BalanceTarget: match.Balance(0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.State).To(Equal(match.StateSolved))
			Expect(d.Provenance.Exact).To(BeTrue())
			for _, g := range d.Grouping.Groups {
				Expect(g.ItemIDs).To(HaveLen(2))
			}
			Expect(d.Provenance.Spread).To(BeNumerically("==", 9))
		})

		It("breaks ties by lowest identifier whatever the input order", func() {
			spec := match.RoundSpec{GroupCount: 2, BalanceTarget: match.Balance(0)}
			fwd, err := orc.ComputeGrouping(ctx, []item.Item{
				item.New("a", 1), item.New("b", 1), item.New("c", 1), item.New("d", 1),
			}, spec)
			Expect(err).NotTo(HaveOccurred())
			rev, err := orc.ComputeGrouping(ctx, []item.Item{
				item.New("d", 1), item.New("c", 1), item.New("b", 1), item.New("a", 1),
			}, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(groupIDs(rev)).To(Equal(groupIDs(fwd)))
			Expect(groupIDs(fwd)[0]).To(ContainElement("a"))
		})

		It("switches to the heuristic one item past the ceiling", func() {
			items := []item.Item{
				item.New("a", 4), item.New("b", 5), item.New("c", 3),
				item.New("d", 2), item.New("e", 7), item.New("f", 1),
			}
			exact, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{
				GroupCount: 2, BalanceTarget: match.Balance(0), ExactVariableCeiling: len(items),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(exact.Provenance.Exact).To(BeTrue())
			Expect(exact.Trace).To(ContainElement(match.StateSolvingExact))

			heur, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{
				GroupCount: 2, BalanceTarget: match.Balance(0), ExactVariableCeiling: len(items) - 1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(heur.Provenance.Exact).To(BeFalse())
			Expect(heur.Provenance.Method).To(Equal(partition.MethodKarmarkarKarp))
			Expect(heur.Trace).To(ContainElement(match.StateSolvingHeuristic))
			Expect(heur.Provenance.Spread).To(BeNumerically(">=", exact.Provenance.Spread))
		})

		It("routes balance rounds with conflicts through the grouping optimizer", func() {
			items := []item.Item{item.New("a", 1), item.New("b", 1), item.New("c", 2), item.New("d", 2)}
			d, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{
				GroupCount: 2, BalanceTarget: match.Balance(0), Conflicts: [][2]string{{"a", "b"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Provenance.Path).To(Equal(match.PathGrouping))
			Expect(d.Provenance.Method).To(Equal(grouping.MethodILP))
			Expect(d.Provenance.Spread).To(BeZero())
			for _, g := range d.Grouping.Groups {
				Expect(g.ItemIDs).NotTo(ContainElements("a", "b"))
			}
		})
	})

	Describe("capacity", func() {
		DescribeTable("rejects bounds that cannot hold the items",
			func(n, k, lo, hi int, family string) {
				d, err := orc.ComputeGrouping(ctx, uniform(n, 1), match.RoundSpec{
					GroupCount: k, MinSize: lo, MaxSize: hi, BalanceTarget: match.Balance(0),
				})
				Expect(err).To(MatchError(errkind.ErrInfeasible))
				Expect(err).To(MatchError(match.ErrCapacity))
				var ke *errkind.Error
				Expect(errors.As(err, &ke)).To(BeTrue())
				Expect(ke.Active).To(ContainElement(family))
				Expect(d.State).To(Equal(match.StateInfeasible))
				Expect(d.Trace).To(Equal([]match.State{match.StateReceived, match.StateInfeasible}))
				Expect(d.Grouping.Groups).To(BeEmpty())
			},
			Entry("two groups of four from six", 6, 2, 4, 4, grouping.FamilySizeMin),
			Entry("two groups of three from five", 5, 2, 3, 3, grouping.FamilySizeMin),
			Entry("two groups of at most two from five", 5, 2, 0, 2, grouping.FamilySizeMax),
		)
	})

	Describe("scored rounds", func() {
		spec := func() match.RoundSpec {
			return match.RoundSpec{
				GroupCount: 2, MinSize: 2, MaxSize: 2,
				Score: grouping.NegDistance(0), Direction: grouping.MaximizeScore,
			}
		}

		It("pairs nearest neighbours exactly", func() {
			d, err := orc.ComputeGrouping(ctx, players(), spec())
			Expect(err).NotTo(HaveOccurred())
			Expect(groupIDs(d)).To(Equal([][]string{{"ann", "cid"}, {"bob", "dee"}}))
			Expect(d.Provenance.Objective).To(BeNumerically("~", -60, 1e-6))
			Expect(d.Provenance.Exact).To(BeTrue())
			Expect(d.Provenance.Backend).To(Equal(gonumlp.Name))
			Expect(d.Provenance.VariableCount).To(BeNumerically(">", 0))
			Expect(d.Trace).To(ContainElement(match.StateSolvingExact))
		})

		It("solves exactly up to a ceiling equal to the variable count", func() {
			base, err := orc.ComputeGrouping(ctx, players(), spec())
			Expect(err).NotTo(HaveOccurred())
			vars := base.Provenance.VariableCount
			Expect(vars).To(BeNumerically(">", len(players())))

			s := spec()
			s.ExactVariableCeiling = vars
			at, err := orc.ComputeGrouping(ctx, players(), s)
			Expect(err).NotTo(HaveOccurred())
			Expect(at.Provenance.Exact).To(BeTrue())
			Expect(at.Provenance.Method).To(Equal(grouping.MethodILP))
			Expect(at.Provenance.VariableCount).To(Equal(vars))

			s.ExactVariableCeiling = vars - 1
			past, err := orc.ComputeGrouping(ctx, players(), s)
			Expect(err).NotTo(HaveOccurred())
			Expect(past.Provenance.Exact).To(BeFalse())
			Expect(past.Provenance.Method).To(Equal(grouping.MethodLocalSearch))
			Expect(past.Provenance.VariableCount).To(Equal(vars))
		})

		It("falls back to local search above the variable ceiling", func() {
			s := spec()
			s.ExactVariableCeiling = 1
			d, err := orc.ComputeGrouping(ctx, players(), s)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Provenance.Method).To(Equal(grouping.MethodLocalSearch))
			Expect(d.Provenance.Exact).To(BeFalse())
			Expect(d.Trace).To(Equal([]match.State{
				match.StateReceived, match.StateValidated, match.StateSolvingHeuristic, match.StateSolved,
			}))
			Expect(d.Grouping.Cover(players(), false)).To(Succeed())
		})

		It("keeps incompatible items apart", func() {
			s := spec()
			s.Compatible = func(a, b item.Item) bool { return !(a.ID() == "ann" && b.ID() == "cid") }
			d, err := orc.ComputeGrouping(ctx, players(), s)
			Expect(err).NotTo(HaveOccurred())
			for _, g := range d.Grouping.Groups {
				Expect(g.ItemIDs).NotTo(ContainElements("ann", "cid"))
			}
		})

		It("reports conflicts that no grouping can honour as infeasible", func() {
			items := []item.Item{item.New("x", 1), item.New("y", 2), item.New("z", 3)}
			d, err := orc.ComputeGrouping(ctx, items, match.RoundSpec{
				GroupCount: 2, Score: grouping.NegDistance(0), Direction: grouping.MaximizeScore,
				Conflicts: [][2]string{{"x", "y"}, {"y", "z"}, {"x", "z"}},
			})
			Expect(errkind.KindOf(err)).To(Equal(errkind.Infeasible))
			Expect(d.State).To(Equal(match.StateInfeasible))
		})
	})

	Describe("validation", func() {
		DescribeTable("fails malformed rounds",
			func(items []item.Item, spec match.RoundSpec, sentinel error) {
				d, err := orc.ComputeGrouping(ctx, items, spec)
				Expect(err).To(MatchError(errkind.ErrInvalidConfiguration))
				Expect(err).To(MatchError(sentinel))
				Expect(d.State).To(Equal(match.StateFailed))
				Expect(d.Trace).To(Equal([]match.State{match.StateReceived, match.StateFailed}))
			},
			Entry("empty id", []item.Item{item.New("", 1)},
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0)}, match.ErrEmptyID),
			Entry("duplicate id", []item.Item{item.New("a", 1), item.New("a", 2)},
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0)}, match.ErrDuplicateID),
			Entry("arity", []item.Item{item.New("a", 1), item.New("b", 1, 2)},
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0)}, match.ErrArity),
			Entry("zero groups", uniform(2, 1),
				match.RoundSpec{BalanceTarget: match.Balance(0)}, match.ErrGroupCount),
			Entry("inverted bounds", uniform(4, 1),
				match.RoundSpec{GroupCount: 2, MinSize: 3, MaxSize: 2, BalanceTarget: match.Balance(0)}, match.ErrBounds),
			Entry("no objective", uniform(2, 1),
				match.RoundSpec{GroupCount: 1}, match.ErrObjective),
			Entry("two objectives", uniform(2, 1),
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0), Score: grouping.NegDistance()}, match.ErrObjective),
			Entry("balance target out of range", uniform(2, 1),
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(3)}, match.ErrBalanceTarget),
			Entry("imbalance direction with a scorer", uniform(2, 1),
				match.RoundSpec{GroupCount: 1, Score: grouping.NegDistance(), Direction: grouping.MinimizeImbalance}, match.ErrDirection),
			Entry("unknown conflict item", uniform(2, 1),
				match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0), Conflicts: [][2]string{{"p1", "zz"}}}, match.ErrConflict),
		)
	})

	Describe("decisions", func() {
		It("uses the injected clock and identifier", func() {
			at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			o, err := match.New(nil,
				match.WithRegistry(nil),
				match.WithClock(func() time.Time { return at }),
				match.WithIDGenerator(func() string { return "round-1" }),
			)
			Expect(err).NotTo(HaveOccurred())
			d, err := o.ComputeGrouping(ctx, uniform(2, 1), match.RoundSpec{GroupCount: 1, BalanceTarget: match.Balance(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.RoundID).To(Equal("round-1"))
			Expect(d.CreatedAt).To(Equal(at))
			Expect(d.Provenance.Duration).To(BeZero())
		})

		It("serializes states by name", func() {
			d, err := orc.ComputeGrouping(ctx, uniform(2, 1), match.RoundSpec{GroupCount: 2, BalanceTarget: match.Balance(0)})
			Expect(err).NotTo(HaveOccurred())
			raw, err := json.Marshal(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring(`"state":"Solved"`))

			var back match.Decision
			Expect(json.Unmarshal(raw, &back)).To(Succeed())
			Expect(back.Trace).To(Equal(d.Trace))
			Expect(back.Grouping.Groups).To(HaveLen(2))
		})
	})

	Describe("metrics", func() {
		It("counts rounds by outcome", func() {
			_, err := orc.ComputeGrouping(ctx, uniform(4, 1), match.RoundSpec{GroupCount: 2, BalanceTarget: match.Balance(0)})
			Expect(err).NotTo(HaveOccurred())
			_, err = orc.ComputeGrouping(ctx, uniform(4, 1), match.RoundSpec{GroupCount: 2, MinSize: 3, BalanceTarget: match.Balance(0)})
			Expect(err).To(HaveOccurred())

			families, err := reg.Gather()
			Expect(err).NotTo(HaveOccurred())
			outcomes := map[string]float64{}
			for _, mf := range families {
				if mf.GetName() != "lvmatch_rounds_total" {
					continue
				}
				for _, m := range mf.GetMetric() {
					for _, lp := range m.GetLabel() {
						if lp.GetName() == "outcome" {
							outcomes[lp.GetValue()] += m.GetCounter().GetValue()
						}
					}
				}
			}
			Expect(outcomes).To(HaveKeyWithValue("solved", 1.0))
			Expect(outcomes).To(HaveKeyWithValue("infeasible", 1.0))
		})

		It("shares collectors between orchestrators on one registry", func() {
			_, err := match.New(nil, match.WithRegistry(reg))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("RunRounds", func() {
		It("returns every outcome in input order", func() {
			rounds := []match.Round{
				{Items: uniform(4, 3), Spec: match.RoundSpec{GroupCount: 2, BalanceTarget: match.Balance(0)}},
				{Items: uniform(4, 3), Spec: match.RoundSpec{GroupCount: 0, BalanceTarget: match.Balance(0)}},
				{Items: players(), Spec: match.RoundSpec{
					GroupCount: 2, MinSize: 2, MaxSize: 2, Score: grouping.NegDistance(0), Direction: grouping.MaximizeScore,
				}},
			}
			out := orc.RunRounds(ctx, rounds, 2)
			Expect(out).To(HaveLen(3))
			for i, o := range out {
				Expect(o.Index).To(Equal(i))
				Expect(o.Decision).NotTo(BeNil())
			}
			Expect(out[0].Err).NotTo(HaveOccurred())
			Expect(out[1].Err).To(MatchError(match.ErrGroupCount))
			Expect(out[2].Err).NotTo(HaveOccurred())
			Expect(out[2].Decision.Provenance.Method).To(Equal(grouping.MethodILP))
		})
	})
})
