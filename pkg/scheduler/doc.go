/*
Package scheduler dispatches deferred tasks at scheduled times.

The scheduler holds a set of named entries, each pairing a TaskFactory
with a firing rule: a one-time instant, a repeating interval, or a cron
expression. A background tick loop checks for due entries and dispatches
a fresh task for each firing, either through a pool or by starting the
task directly.

Basic Usage:

	s := scheduler.New()
	s.Start()
	defer func() { <-s.Stop() }()

	s.ScheduleAfter("warmup", func() future.Task {
		return future.NewFunc(func() (string, error) {
			return loadCache()
		}).AsTask()
	}, 5*time.Second)

Task Factories:

Entries hold factories rather than tasks because a settled future cannot
run again. Each time an entry fires, the scheduler calls the factory for
a new task:

	s.ScheduleRepeating("poll", func() future.Task {
		return future.NewFunc(pollUpstream).AsTask()
	}, 30*time.Second)

Cron Scheduling:

Cron expressions use the six-field form with a leading seconds field:

	// Every day at 02:00:00
	s.ScheduleCron("backup", "0 0 2 * * *", backupFactory)

The Location in Config controls the timezone cron times are evaluated
in; it defaults to time.Local.

Pool Integration:

When Config.Pool is set, dispatched tasks go through the pool and
inherit its concurrency ceiling and per-task timeout:

	p := pool.New(4)
	s := scheduler.NewWithConfig(scheduler.Config{
		Pool: p,
		Name: "jobs",
	})

Entry Management:

	s.Cancel("poll")       // remove one entry
	s.CancelAll()          // remove every entry
	for _, e := range s.List() {
		fmt.Println(e.ID, e.RunAt)
	}

List returns entries sorted by next run time. Cancelling an entry stops
future firings; tasks already dispatched are unaffected.

Lifecycle:

Start begins the tick loop; Stop halts it and returns a channel that
closes once the loop has exited. Entries may be added before Start and
survive across Stop, but nothing fires while the scheduler is stopped.
A stopped scheduler may be started again.

All operations are safe for concurrent use.
*/
package scheduler
