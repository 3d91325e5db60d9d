/*
Package group aggregates many futures into a single future under a
selectable combination policy.

A group is itself a future of the aggregate result. It stays dormant until
started; once started it launches its members (through a shared pool when
one is configured), combines their outcomes, and forwards its own
cancellation or timeout to every member.

Policies:

	g := group.All[int](group.Config{Name: "fetch"})
	g.Add(fetchA).Add(fetchB).Add(fetchC)
	values, err := g.Wait(ctx) // [a, b, c] in insertion order

	group.First[T]      race semantics: first settlement wins
	group.All[T]        ordered values, rejects on first member rejection
	group.Any[T]        first fulfillment, rejects only if all reject
	group.AllSettled[T] ordered per-member Outcome records, never rejects
	group.Reduce[T, R]  streams outcomes through a reducer coroutine

Member kinds:

Normal members feed the policy. Background members must settle before the
group can report success but contribute no value. Daemon members are
force-cancelled the moment the group settles.

Reduce:

The REDUCE policy folds outcomes into an accumulator as they arrive, so a
group over a million members holds one accumulator, not a million values.
The reducer is a coroutine: a function running on its own goroutine that
pulls (value, sourceIndex) pairs via ReducerContext.Next, receives index -1
when no inputs remain, and returns the final aggregate. A rejected member
arrives as a non-nil error the reducer may swallow or propagate.

Registry:

Every unsettled group is visible through Live, an explicit registration
scheme for introspecting outstanding work.
*/
package group
