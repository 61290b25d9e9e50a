package organize

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"camroll/internal/logging"
)

func newTestTracker(remote *fakeRemote, opts TrackerOptions) (*Tracker, *countingSleep, *Report, *Recorder) {
	report := NewReport("run-1", "test")
	recorder := &Recorder{}
	tracker := NewTracker(remote, opts, report, recorder, logging.NewNop())
	sleeper := &countingSleep{}
	tracker.sleep = sleeper.sleep
	return tracker, sleeper, report, recorder
}

func TestAwaitEmptySetDoesNotPoll(t *testing.T) {
	remote := newFakeRemote()
	tracker, sleeper, _, _ := newTestTracker(remote, TrackerOptions{})

	outcome, err := tracker.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(remote.polls()) != 0 || sleeper.count() != 0 {
		t.Fatalf("expected no polls or waits, got polls=%v waits=%d", remote.polls(), sleeper.count())
	}
	if outcome.Rounds != 0 {
		t.Fatalf("expected zero rounds, got %d", outcome.Rounds)
	}
}

func TestAwaitTwoJobsAcrossRounds(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["job-1"] = []JobStatus{{Tag: TagInProgress}, {Tag: TagComplete, Moved: 3}}
	remote.statuses["job-2"] = []JobStatus{{Tag: TagInProgress}, {Tag: TagFailed}}
	tracker, sleeper, report, recorder := newTestTracker(remote, TrackerOptions{PollInterval: 5 * time.Second})
	tracker.Register("job-1")
	tracker.Register("job-2")

	outcome, err := tracker.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if outcome.Rounds != 2 {
		t.Fatalf("expected 2 rounds, got %d", outcome.Rounds)
	}
	if got := remote.polls(); len(got) != 4 {
		t.Fatalf("expected 4 polls, got %v", got)
	}
	if sleeper.count() != 1 || sleeper.waits[0] != 5*time.Second {
		t.Fatalf("expected a single 5s wait, got %v", sleeper.waits)
	}
	if !reflect.DeepEqual(outcome.Failed, []string{"job-2"}) || !reflect.DeepEqual(outcome.Completed, []string{"job-1"}) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	summary := report.Finalize()
	if !reflect.DeepEqual(summary.JobsFailed, []string{"job-2"}) {
		t.Fatalf("report failed jobs = %v", summary.JobsFailed)
	}
	if summary.FilesMoved != 3 {
		t.Fatalf("expected 3 files moved from completed job, got %d", summary.FilesMoved)
	}
	if got := recorder.Kinds(EventJobFinished); len(got) != 2 {
		t.Fatalf("expected 2 JobFinished events, got %v", got)
	}
	if got := recorder.Kinds(EventJobPolled); len(got) != 4 {
		t.Fatalf("expected 4 JobPolled events, got %v", got)
	}
}

func TestAwaitPollsOnlyPendingJobs(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["fast"] = []JobStatus{{Tag: TagComplete}}
	remote.statuses["slow"] = []JobStatus{{Tag: TagInProgress}, {Tag: TagInProgress}, {Tag: TagComplete}}
	tracker, _, _, _ := newTestTracker(remote, TrackerOptions{})

	if _, err := tracker.AwaitJobs(context.Background(), "fast", "slow"); err != nil {
		t.Fatalf("AwaitJobs: %v", err)
	}
	want := []string{"fast", "slow", "slow", "slow"}
	if got := remote.polls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("polls = %v, want %v", got, want)
	}
}

func TestUnknownTagStaysPending(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["job"] = []JobStatus{{Tag: "other"}, {Tag: "mystery"}, {Tag: TagComplete}}
	tracker, _, _, _ := newTestTracker(remote, TrackerOptions{})

	outcome, err := tracker.AwaitJobs(context.Background(), "job")
	if err != nil {
		t.Fatalf("AwaitJobs: %v", err)
	}
	if outcome.Rounds != 3 || len(outcome.Completed) != 1 {
		t.Fatalf("expected completion on round 3, got %+v", outcome)
	}
}

func TestStateForTag(t *testing.T) {
	cases := map[string]JobState{
		TagComplete:   JobComplete,
		TagFailed:     JobFailed,
		TagInProgress: JobPending,
		"":            JobPending,
		"other":       JobPending,
	}
	for tag, want := range cases {
		if got := StateForTag(tag); got != want {
			t.Errorf("StateForTag(%q) = %s, want %s", tag, got, want)
		}
	}
}

func TestAwaitMaxRoundsTimesOut(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["stuck"] = []JobStatus{{Tag: TagInProgress}}
	tracker, sleeper, report, _ := newTestTracker(remote, TrackerOptions{MaxRounds: 3})
	tracker.Register("stuck")

	outcome, err := tracker.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if outcome.Rounds != 3 || !reflect.DeepEqual(outcome.TimedOut, []string{"stuck"}) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if sleeper.count() != 2 {
		t.Fatalf("expected 2 waits between 3 rounds, got %d", sleeper.count())
	}
	if summary := report.Finalize(); !reflect.DeepEqual(summary.JobsTimedOut, []string{"stuck"}) || summary.Clean() {
		t.Fatalf("expected timed out job in summary, got %+v", summary)
	}
}

func TestAwaitDeadlineTimesOut(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["stuck"] = []JobStatus{{Tag: TagInProgress}}
	tracker, sleeper, _, _ := newTestTracker(remote, TrackerOptions{PollInterval: 4 * time.Second, Deadline: 10 * time.Second})

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }
	sleeper.hook = func(int) error {
		clock = clock.Add(sleeper.waits[len(sleeper.waits)-1])
		return nil
	}

	outcome, err := tracker.AwaitJobs(context.Background(), "stuck")
	if err != nil {
		t.Fatalf("AwaitJobs: %v", err)
	}
	if len(outcome.TimedOut) != 1 {
		t.Fatalf("expected job to time out, got %+v", outcome)
	}
	want := []time.Duration{4 * time.Second, 4 * time.Second, 2 * time.Second}
	if !reflect.DeepEqual(sleeper.waits, want) {
		t.Fatalf("waits = %v, want %v", sleeper.waits, want)
	}
}

func TestAwaitCancellationMarksRemainingJobs(t *testing.T) {
	remote := newFakeRemote()
	remote.statuses["a"] = []JobStatus{{Tag: TagInProgress}}
	remote.statuses["b"] = []JobStatus{{Tag: TagComplete}}
	tracker, sleeper, report, _ := newTestTracker(remote, TrackerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper.hook = func(int) error {
		cancel()
		return nil
	}

	outcome, err := tracker.AwaitJobs(ctx, "a", "b")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !reflect.DeepEqual(outcome.Cancelled, []string{"a"}) || !reflect.DeepEqual(outcome.Completed, []string{"b"}) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if summary := report.Finalize(); !reflect.DeepEqual(summary.JobsCancelled, []string{"a"}) {
		t.Fatalf("expected cancelled job in summary, got %+v", summary.JobsCancelled)
	}
}

func TestAwaitPollErrors(t *testing.T) {
	transport := errors.New("connection reset")

	t.Run("recovers", func(t *testing.T) {
		remote := newFakeRemote()
		remote.statuses["job"] = []JobStatus{{Tag: TagComplete}}
		remote.pollErrs["job"] = []error{transport, transport}
		tracker, _, _, _ := newTestTracker(remote, TrackerOptions{MaxPollErrors: 3})

		outcome, err := tracker.AwaitJobs(context.Background(), "job")
		if err != nil {
			t.Fatalf("AwaitJobs: %v", err)
		}
		if len(outcome.Completed) != 1 || outcome.Rounds != 3 {
			t.Fatalf("expected completion after two errors, got %+v", outcome)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		remote := newFakeRemote()
		remote.statuses["job"] = []JobStatus{{Tag: TagComplete}}
		remote.pollErrs["job"] = []error{transport, transport, transport}
		tracker, _, report, _ := newTestTracker(remote, TrackerOptions{MaxPollErrors: 2})

		outcome, err := tracker.AwaitJobs(context.Background(), "job")
		if err != nil {
			t.Fatalf("AwaitJobs: %v", err)
		}
		if !reflect.DeepEqual(outcome.Unresolved, []string{"job"}) {
			t.Fatalf("expected unresolved job, got %+v", outcome)
		}
		summary := report.Finalize()
		if len(summary.Errors) != 1 || summary.Errors[0].Scope != "job job" {
			t.Fatalf("expected surfaced poll error, got %+v", summary.Errors)
		}
	})
}

func TestRegisterIgnoresDuplicates(t *testing.T) {
	tracker := NewTracker(newFakeRemote(), TrackerOptions{}, nil, nil, nil)
	tracker.Register("a")
	tracker.Register("a")
	tracker.Register("")
	if got := tracker.Pending(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("pending = %v", got)
	}
}

func TestPollRoundHonorsConcurrency(t *testing.T) {
	remote := newFakeRemote()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		remote.statuses[id] = []JobStatus{{Tag: TagComplete}}
	}
	tracker, _, _, _ := newTestTracker(remote, TrackerOptions{PollConcurrency: 2})
	outcome, err := tracker.AwaitJobs(context.Background(), ids...)
	if err != nil {
		t.Fatalf("AwaitJobs: %v", err)
	}
	if len(outcome.Completed) != 4 || outcome.Rounds != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if !reflect.DeepEqual(outcome.Completed, ids) {
		t.Fatalf("completed order = %v, want registration order", outcome.Completed)
	}
}
