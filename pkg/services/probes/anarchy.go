package probes

import (
	"context"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/spf13/pflag"
)

const (
	TagKopfProgressExists  domain.FindingTag = "kopfProgressExists"
	TagSubjectRefNotExists domain.FindingTag = "subjectRefNotExists"
	TagRunScheduledError   domain.FindingTag = "runScheduledError"
	TagRunRefMissing       domain.FindingTag = "runRefMissing"

	// anarchy runs and subjects historically spell the progress tag in lower case
	TagKopfprogressExists  domain.FindingTag = "kopfprogressExists"
	TagRunnerPodMissing    domain.FindingTag = "runnerPodMissing"
	TagStateNotSuccessful  domain.FindingTag = "stateNotSuccessful"
	TagProvisionJobMissing domain.FindingTag = "provisionJobMissing"
	TagBadDesiredStatus    domain.FindingTag = "badDesiredStatus"
	TagBadCurrentStatus    domain.FindingTag = "badCurrentStatus"
)

var (
	goodDesiredStates = []string{
		"provision-pending", "provisioning",
		"started", "start-pending", "starting",
		"stopped", "stop-pending", "stopping",
		"destroying",
	}
	failedCurrentStates = []string{"provision-failed", "start-failed", "stop-failed", "destroy-failed"}
)

type anarchyActions struct {
	scheduleGrace time.Duration
	runRefGrace   time.Duration
}

func NewAnarchyActions() Probe { return &anarchyActions{} }

func (p *anarchyActions) Name() string { return "anarchy-actions" }

func (p *anarchyActions) Description() string {
	return "Anarchy actions stuck in progress, without subject or never finished"
}

func (p *anarchyActions) Flags(fs *pflag.FlagSet) {
	fs.Duration("schedule-grace", 30*time.Minute, "time after runScheduled before an unfinished action is an error")
	fs.Duration("runref-grace", 500*time.Second, "time after creation before a missing runRef is an error (runRefMissing rule)")
}

func (p *anarchyActions) Configure(s config.Scope) error {
	p.scheduleGrace = s.Duration("schedule-grace")
	p.runRefGrace = s.Duration("runref-grace")
	return nil
}

func (p *anarchyActions) rules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(rules.Present(string(TagKopfProgressExists), TagKopfProgressExists, kopfProgress...))
	_ = reg.Register(rules.Absent(string(TagSubjectRefNotExists), TagSubjectRefNotExists, "spec", "subjectRef"))
	_ = reg.Register(rules.Chain(string(TagRunScheduledError),
		rules.When(rules.Has("status", "finishedTimestamp"), rules.Pass()),
		rules.When(rules.Has("status", "runScheduled"),
			rules.Stale("runScheduled", TagRunScheduledError, p.scheduleGrace, rules.At("status", "runScheduled"))),
		rules.When(rules.Has("status", "state"),
			rules.OneOf("state", TagRunScheduledError, []string{"successful"}, "status", "state")),
		rules.Otherwise(rules.Flag(TagRunScheduledError, "no finishedTimestamp, runScheduled or state")),
	))
	// many healthy actions have no runRef
	_ = reg.Register(
		rules.Absent(string(TagRunRefMissing), TagRunRefMissing, "status", "runRef").OlderThan(p.runRefGrace),
		rules.DisabledByDefault(),
	)
	return reg
}

func (p *anarchyActions) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	return collectionCheck{
		name:       p.Name(),
		collection: source.AnarchyActions,
		noun:       "Anarchy Action",
		countLabel: "countactions",
		errorLabel: "erroractions",
	}.run(ctx, env, p.rules())
}

type anarchyRuns struct {
	runnerPodGrace time.Duration
}

func NewAnarchyRuns() Probe { return &anarchyRuns{} }

func (p *anarchyRuns) Name() string { return "anarchy-runs" }

func (p *anarchyRuns) Description() string {
	return "Anarchy runs stuck in progress, without runner pod or without result"
}

func (p *anarchyRuns) Flags(fs *pflag.FlagSet) {
	fs.Duration("runner-pod-grace", 31*time.Minute, "time after creation before a run without runner pod is an error")
}

func (p *anarchyRuns) Configure(s config.Scope) error {
	p.runnerPodGrace = s.Duration("runner-pod-grace")
	return nil
}

func (p *anarchyRuns) rules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(rules.Present(string(TagKopfprogressExists), TagKopfprogressExists, kopfProgress...))
	_ = reg.Register(rules.Chain(string(TagRunnerPodMissing),
		rules.When(
			rules.And(rules.Has("status", "result", "status"), rules.Missing("status", "runnerPod")),
			rules.Flag(TagRunnerPodMissing, "result without runner pod"),
		),
		rules.Otherwise(
			rules.Absent("runnerPodName", TagRunnerPodMissing, "status", "runnerPod", "name").OlderThan(p.runnerPodGrace),
		),
	))
	_ = reg.Register(rules.Absent(string(TagStateNotSuccessful), TagStateNotSuccessful, "status", "result", "status"))
	return reg
}

func (p *anarchyRuns) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	return collectionCheck{
		name:       p.Name(),
		collection: source.AnarchyRuns,
		noun:       "Anarchy Runs",
		countLabel: "countruns",
		errorLabel: "errorruns",
	}.run(ctx, env, p.rules())
}

type anarchySubjects struct {
	provisionGrace time.Duration
}

func NewAnarchySubjects() Probe { return &anarchySubjects{} }

func (p *anarchySubjects) Name() string { return "anarchy-subjects" }

func (p *anarchySubjects) Description() string {
	return "Anarchy subjects in failed or unknown states"
}

func (p *anarchySubjects) Flags(fs *pflag.FlagSet) {
	fs.Duration("provision-grace", 31*time.Minute, "time after creation before a missing provision job is an error")
}

func (p *anarchySubjects) Configure(s config.Scope) error {
	p.provisionGrace = s.Duration("provision-grace")
	return nil
}

func (p *anarchySubjects) rules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(
		rules.Absent(string(TagProvisionJobMissing), TagProvisionJobMissing, "status", "towerJobs", "provision").
			OlderThan(p.provisionGrace),
	)
	_ = reg.Register(rules.Present(string(TagKopfprogressExists), TagKopfprogressExists, kopfProgress...).NonEmpty())
	_ = reg.Register(
		rules.OneOf(string(TagBadDesiredStatus), TagBadDesiredStatus, goodDesiredStates, "spec", "vars", "desired_state").
			Required(),
	)
	_ = reg.Register(
		rules.NoneOf(string(TagBadCurrentStatus), TagBadCurrentStatus, failedCurrentStates, "spec", "vars", "current_state"),
	)
	return reg
}

func (p *anarchySubjects) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	return collectionCheck{
		name:       p.Name(),
		collection: source.AnarchySubjects,
		noun:       "Anarchy Subjects",
		countLabel: "countsubjects",
		errorLabel: "errorsubjects",
		link:       linkNamespaced,
		skip:       func(rec domain.Record) bool { return rec.Name() == "babylon" },
		recovered:  kopfRecovered,
	}.run(ctx, env, p.rules())
}
