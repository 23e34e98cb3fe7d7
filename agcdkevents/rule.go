package agcdkevents

import (
	"fmt"

	"github.com/advdv/agevents/agcdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Rule is an event-routing rule dispatching matched events to targets.
type Rule interface {
	constructs.Construct

	// RuleArn returns the deploy-time ARN of the rule.
	RuleArn() *string

	// RuleName returns the deploy-time physical name of the rule.
	RuleName() *string

	// AddEventPattern merges the given pattern into the rule's pattern.
	AddEventPattern(pattern *EventPattern) error

	// AddTarget registers a target with the rule. A nil target is a no-op.
	// Targets owned by another account or region are mirrored into the
	// target environment instead of being attached directly.
	AddTarget(target IRuleTarget) error
}

// RuleProps configures a Rule.
type RuleProps struct {
	// RuleName is the physical name. When nil a name is generated.
	RuleName *string

	// Description of the rule's purpose.
	Description *string

	// Enabled determines whether the rule is active, defaults to true.
	Enabled *bool

	// Schedule fires the rule on a fixed cadence instead of matching
	// events. Mutually exclusive with EventBus.
	Schedule *Schedule

	// EventPattern seeds the match pattern. More pattern content can be
	// merged in later via AddEventPattern.
	EventPattern *EventPattern

	// Targets to register at construction. More targets can be added
	// later via AddTarget.
	Targets []IRuleTarget

	// EventBus the rule is attached to; the account default bus when nil.
	EventBus awsevents.IEventBus
}

type rule struct {
	constructs.Construct

	cfnRule            awsevents.CfnRule
	description        *string
	scheduleExpression *string
	eventPattern       map[string]any
	targets            []*awsevents.CfnRule_TargetProperty
	eventsRole         awsiam.IRole
	xEnvTargetsAdded   map[string]struct{}

	// source is set on mirror rules only; pattern rendering then delegates
	// to the source rule and validation is skipped.
	source *rule
}

// New creates a Rule in the given scope. It panics when the props conflict,
// e.g. when both a custom event bus and a schedule are supplied.
func New(scope constructs.Construct, id string, props *RuleProps) Rule {
	return newRule(scope, id, props, nil)
}

func newRule(scope constructs.Construct, id string, props *RuleProps, source *rule) *rule {
	if props == nil {
		props = &RuleProps{}
	}
	if props.EventBus != nil && props.Schedule != nil {
		panic("cannot associate a rule with a custom event bus when a schedule is configured")
	}

	r := &rule{
		description:      props.Description,
		eventPattern:     map[string]any{},
		xEnvTargetsAdded: map[string]struct{}{},
		source:           source,
	}
	constructs.NewConstruct_Override(r, scope, jsii.String(id))

	if props.Schedule != nil {
		r.scheduleExpression = jsii.String(props.Schedule.ExpressionString())
	}

	state := "ENABLED"
	if props.Enabled != nil && !*props.Enabled {
		state = "DISABLED"
	}

	var eventBusName *string
	if props.EventBus != nil {
		eventBusName = props.EventBus.EventBusName()
	}

	r.cfnRule = awsevents.NewCfnRule(r, jsii.String("Resource"), &awsevents.CfnRuleProps{
		Name:               props.RuleName,
		Description:        props.Description,
		State:              jsii.String(state),
		ScheduleExpression: r.scheduleExpression,
		EventBusName:       eventBusName,
		EventPattern:       awscdk.Lazy_Any(&eventPatternProducer{rule: r}, nil),
		Targets:            awscdk.Lazy_Any(&targetsProducer{rule: r}, nil),
	})

	if props.EventPattern != nil {
		if err := r.AddEventPattern(props.EventPattern); err != nil {
			panic(err)
		}
	}

	for _, target := range props.Targets {
		if err := r.AddTarget(target); err != nil {
			panic(err)
		}
	}

	r.Node().AddValidation(&ruleValidation{rule: r})

	return r
}

func (r *rule) RuleArn() *string {
	return r.cfnRule.AttrArn()
}

func (r *rule) RuleName() *string {
	return r.cfnRule.Ref()
}

func (r *rule) AddEventPattern(pattern *EventPattern) error {
	if pattern == nil {
		return nil
	}

	merged, err := mergeEventPattern(r.eventPattern, pattern.toMap())
	if err != nil {
		return err
	}

	r.eventPattern = merged

	return nil
}

func (r *rule) AddTarget(target IRuleTarget) error {
	if target == nil {
		return nil
	}

	autoID := fmt.Sprintf("Target%d", len(r.targets))

	cfg := target.Bind(r, autoID)

	id := autoID
	if cfg.ID != nil && *cfg.ID != "" {
		id = *cfg.ID
	}

	if cfg.TargetResource != nil {
		ruleStack := awscdk.Stack_Of(r)
		targetStack := awscdk.Stack_Of(cfg.TargetResource)

		// Imported resources carry the environment of the ARN they were
		// imported from, which may differ from their stack's.
		targetAccount, targetRegion := *targetStack.Account(), *targetStack.Region()
		if res, ok := cfg.TargetResource.(awscdk.IResource); ok {
			env := res.Env()
			targetAccount, targetRegion = *env.Account, *env.Region
		}

		if !agcdkutil.SameEnvDimension(targetAccount, *ruleStack.Account()) ||
			!agcdkutil.SameEnvDimension(targetRegion, *ruleStack.Region()) {
			return r.addCrossEnvTarget(target, id, targetStack, targetAccount, targetRegion)
		}
	}

	r.targets = append(r.targets, renderTargetProperty(id, cfg))

	return nil
}

// renderEventPattern produces the wire-format pattern, or nil when the
// rule has none. Mirror rules render whatever their source rule matches.
func (r *rule) renderEventPattern() map[string]any {
	if r.source != nil {
		return r.source.renderEventPattern()
	}
	if len(r.eventPattern) == 0 {
		return nil
	}
	return r.eventPattern
}

type eventPatternProducer struct {
	rule *rule
}

func (p *eventPatternProducer) Produce() interface{} {
	pattern := p.rule.renderEventPattern()
	if pattern == nil {
		return nil
	}
	return pattern
}

type targetsProducer struct {
	rule *rule
}

func (p *targetsProducer) Produce() interface{} {
	if len(p.rule.targets) == 0 {
		return nil
	}
	return p.rule.targets
}

type ruleValidation struct {
	rule *rule
}

// Validate checks the rule has something to match on. Mirror rules are
// exempt since the source rule already validated the shared pattern.
func (v *ruleValidation) Validate() *[]*string {
	errs := []*string{}

	r := v.rule
	if r.source == nil && len(r.eventPattern) == 0 && r.scheduleExpression == nil {
		errs = append(errs, jsii.String("either 'EventPattern' or 'Schedule' must be defined"))
	}

	return &errs
}
