/*
Package future provides a lazy, cancelable, pausable unit of asynchronous
computation.

A Future does nothing until started; starting is triggered explicitly via
Start, or implicitly by Wait or Then. Once running, a computation can be
paused and resumed (with nesting), cancelled cooperatively, or timed out by
timers measured from construction or from the start of execution.

Basic usage:

	f := future.New(func(c *future.Context[int]) (int, error) {
		// Periodically check the runnable gate to observe pause,
		// cancellation and timeout requests.
		if err := c.Runnable(context.Background()); err != nil {
			return 0, err
		}
		return compute(), nil
	})

	v, err := f.Wait(context.Background()) // starts and awaits

Lifecycle:

A future moves through the states PENDING, DELAY, RUNNING and PAUSED, and
terminates in exactly one of FULFILLED, REJECTED, CANCELLED or TIMEOUT.
Terminal states are permanent: late timer fires, repeated cancellations and
discarded computation results never change a settled future.

Timeouts:

Two independent timers can run at once. TimeoutFromNow is armed at
construction and fires whether or not the future ever started;
TimeoutFromStart is armed on the RUNNING transition. Either races the
computation; the loser's report is suppressed. The resulting TimeoutError
carries the start and detection times so overrun is measurable.

Combinators:

Race, All, AllSettled and Any build one future out of many. They are as
lazy as the futures themselves: members referenced by a combinator do not
start until the combinator itself starts.

Failure handling:

A rejected future that nobody ever observes is reported through the
configured zerolog logger exactly once, after a short grace period for
late observers.
*/
package future
