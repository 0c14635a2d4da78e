package model

import "time"

// Prompt tells the technician what to do next for a job.
type Prompt struct {
	JobID            string
	State            State
	StateDisplayName string

	Steps            []StepDescriptor
	CompletedSteps   []*StepCompletion
	CurrentStepIndex int             // index into Steps of the first incomplete step
	CurrentStep      *StepDescriptor // nil once every step is done

	CanAdvance  bool
	CanBlock    bool
	CanEscalate bool
	CanRetry    bool
	CanResolve  bool
	CanFail     bool

	AttemptCount      int
	MaxAttempts       int
	AttemptsRemaining int
	ProgressPercent   int
}

// Stats are read-only roll-ups over persisted jobs.
type Stats struct {
	Total              int
	ByState            map[State]int
	ByCategory         map[string]int
	ByPriority         map[Priority]int
	CompletedToday     int
	AverageCycleTime   time.Duration
	CycleTimeSampleCnt int
}
