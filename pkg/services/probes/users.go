package probes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/index"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/staleness"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	TagNoProject           domain.FindingTag = "noProject"
	TagNoRolebinding       domain.FindingTag = "noRolebinding"
	TagNoIDGroup           domain.FindingTag = "noIDGroup"
	TagNotInIDGroup        domain.FindingTag = "notInIDGroup"
	TagNoEmailGroup        domain.FindingTag = "noEmailGroup"
	TagNotInEmailGroup     domain.FindingTag = "notInEmailGroup"
	TagTooManyIdentities   domain.FindingTag = "tooManyIdentities"
	TagUserHasNoIdentities domain.FindingTag = "userHasNoIdentities"
	TagLastLoginStale      domain.FindingTag = "lastLoginStale"

	DefaultLastLoginAnnotation = "babylon.gpte.redhat.com/last-login"

	idProviderGroupPrefix  = "identity-provider."
	emailDomainGroupPrefix = "email-domain."
)

type babylonUsers struct {
	isPrimary  bool
	annotation string
	sample     int
	window     time.Duration
}

func NewBabylonUsers() Probe { return &babylonUsers{} }

func (p *babylonUsers) Name() string { return "babylon-users" }

func (p *babylonUsers) Description() string {
	return "Consistency of user namespaces, rolebindings, identities and provider groups"
}

func (p *babylonUsers) Flags(fs *pflag.FlagSet) {
	fs.Bool("isprimary", false, "this cluster runs the catalog UI, recent logins are expected")
	fs.String("last-login-annotation", DefaultLastLoginAnnotation, "user annotation holding the last login time")
	fs.Int("login-sample", 10, "number of most recent logins considered")
	fs.Duration("login-window", 24*time.Hour, "maximum age of the oldest login of the sample")
}

func (p *babylonUsers) Configure(s config.Scope) error {
	p.isPrimary = s.Bool("isprimary")
	p.annotation = s.String("last-login-annotation")
	p.sample = s.Int("login-sample")
	p.window = s.Duration("login-window")
	if p.sample <= 0 {
		return fmt.Errorf("%w: --login-sample must be positive", config.ErrUsage)
	}
	return nil
}

// userIndexes are the lookups shared by the user rules.
type userIndexes struct {
	users      *index.Index
	identities *index.Index
}

func userName(rec domain.Record) string {
	s, _ := rec.String("spec", "user", "name")
	return s
}

// identitiesOf lists the identity names of the user owning the user namespace.
func (u userIndexes) identitiesOf(rec domain.Record) ([]string, bool) {
	user, ok := u.users.Get(userName(rec))
	if !ok {
		return nil, false
	}
	raw, _ := user.Slice("identities")
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// idGroups derives identity-provider.<provider> from <provider>:<login>.
func (u userIndexes) idGroups(rec domain.Record) []string {
	ids, _ := u.identitiesOf(rec)
	var groups []string
	for _, id := range ids {
		provider, _, _ := strings.Cut(id, ":")
		groups = appendUnique(groups, idProviderGroupPrefix+provider)
	}
	return groups
}

// emailGroups derives email-domain.<domain> from the email of every identity.
func (u userIndexes) emailGroups(rec domain.Record) []string {
	ids, _ := u.identitiesOf(rec)
	var groups []string
	for _, id := range ids {
		identity, ok := u.identities.Get(id)
		if !ok {
			continue
		}
		email, _ := identity.String("extra", "email")
		_, emailDomain, found := strings.Cut(email, "@")
		if !found || emailDomain == "" {
			continue
		}
		groups = appendUnique(groups, emailDomainGroupPrefix+emailDomain)
	}
	return groups
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func managedResourceNames(rec domain.Record) []string {
	items, _ := rec.Slice("status", "managedResources")
	var names []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := domain.Record(m).String("name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (p *babylonUsers) rules(u userIndexes) *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(rules.References(string(TagNoEmailGroup), TagNoEmailGroup, source.Groups.Name, u.emailGroups))
	_ = reg.Register(rules.Membership(string(TagNotInEmailGroup), TagNotInEmailGroup, source.Groups.Name, u.emailGroups, userName))
	_ = reg.Register(rules.References(string(TagNoIDGroup), TagNoIDGroup, source.Groups.Name, u.idGroups))
	_ = reg.Register(rules.Membership(string(TagNotInIDGroup), TagNotInIDGroup, source.Groups.Name, u.idGroups, userName))
	_ = reg.Register(rules.Func(string(TagTooManyIdentities), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
		ids, _ := u.identitiesOf(rec)
		if len(ids) <= 1 {
			return domain.Finding{}, false
		}
		return domain.Finding{Tag: TagTooManyIdentities, Detail: strings.Join(ids, ",")}, true
	}), rules.DisabledByDefault())
	_ = reg.Register(rules.Func(string(TagUserHasNoIdentities), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
		ids, found := u.identitiesOf(rec)
		if !found || len(ids) > 0 {
			return domain.Finding{}, false
		}
		return domain.Finding{Tag: TagUserHasNoIdentities, Detail: "user has no identities"}, true
	}), rules.DisabledByDefault())
	_ = reg.Register(rules.References(string(TagNoProject), TagNoProject, source.Namespaces.Name,
		func(rec domain.Record) []string { return []string{rec.Name()} }))
	_ = reg.Register(rules.References(string(TagNoRolebinding), TagNoRolebinding, source.RoleBindings.Name, managedResourceNames))
	return reg
}

// lastLogin checks that the k-th most recent login is recent enough. The
// returned note is always printed; the finding only matters on the primary
// cluster.
func (p *babylonUsers) lastLogin(now time.Time, users []domain.Record) (string, *domain.Finding) {
	var stamps []string
	for _, u := range users {
		if ts, ok := u.Annotations()[p.annotation]; ok {
			stamps = append(stamps, ts)
		}
	}

	sample, err := staleness.KthMostRecent(now, stamps, p.sample, p.window)
	switch {
	case errors.Is(err, staleness.ErrInsufficientSample):
		return fmt.Sprintf("WARNING - Less than %d logins on the cluster!", p.sample),
			&domain.Finding{Tag: domain.TagInsufficientSample, Detail: err.Error()}
	case err != nil:
		return err.Error(), &domain.Finding{Tag: domain.TagEvaluationFailed, Detail: err.Error()}
	case sample.Stale:
		note := fmt.Sprintf("Last-login WARN - %d logins back > %s at %s (%s ago)",
			p.sample, p.window, sample.Reference.Format(time.RFC3339), staleness.FormatAge(sample.Age))
		return note, &domain.Finding{Tag: TagLastLoginStale, Detail: note}
	default:
		return fmt.Sprintf("Last-login OK - %d or more logins < %s", p.sample, p.window), nil
	}
}

func (p *babylonUsers) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency,
		source.UserNamespaces, source.Namespaces, source.RoleBindings,
		source.Users, source.Identities, source.Groups,
	)
	if err != nil {
		return nil, err
	}

	u := userIndexes{
		users:      index.Build(source.Users.Name, fetched[source.Users.Name], index.ByName),
		identities: index.Build(source.Identities.Name, fetched[source.Identities.Name], index.ByName),
	}
	indexes := index.NewSet(
		u.users,
		u.identities,
		index.Build(source.Namespaces.Name, fetched[source.Namespaces.Name], index.ByName),
		index.Build(source.RoleBindings.Name, fetched[source.RoleBindings.Name], index.ByName),
		index.Build(source.Groups.Name, fetched[source.Groups.Name], index.ByName),
	)

	agg := aggregate.New(p.Name())
	userNamespaces := fetched[source.UserNamespaces.Name]
	err = evaluate(ctx, env, p.rules(u), userNamespaces, indexes, func(r rules.Result) {
		agg.Add(domain.Key{Name: userName(r.Record)}, r.Findings)
	})
	if err != nil {
		return nil, err
	}

	note, loginFinding := p.lastLogin(env.Now, fetched[source.Users.Name])
	loginError := loginFinding != nil && p.isPrimary
	if loginError {
		agg.AddGlobal(*loginFinding)
	}

	report := agg.Report(aggregate.AnyFinding{Level: domain.SeverityWarning}, env.Now)
	switch {
	case report.Errors == 0 && !loginError:
		report.Summary = "No Babylon Users in Error found;"
	case report.Errors == 0:
		report.Summary = "Last login has an error;"
	case !loginError:
		report.Summary = "Users in Error;"
	default:
		report.Summary = "Users in Error and last user login error;"
	}
	report.Notes = []string{note}
	report.PerfData = []domain.PerfDatum{
		perf("namespaces", len(fetched[source.Namespaces.Name])),
		perf("users", len(userNamespaces)),
		perf("errors", report.Errors),
	}

	zerolog.Ctx(ctx).Info().
		Int("users", len(userNamespaces)).
		Int("errors", report.Errors).
		Bool("login_error", loginError).
		Msg("Evaluated users")
	return report, nil
}
