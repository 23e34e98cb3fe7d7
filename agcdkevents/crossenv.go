package agcdkevents

import (
	"fmt"

	"github.com/advdv/agevents/agcdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

// eventsRoleID is the fixed child name of the role the events service
// assumes to publish to another region. At most one exists per rule.
const eventsRoleID = "EventsRole"

// addCrossEnvTarget wires a target owned by another account or region. The
// rule forwards matched events to the default event bus of the target
// environment, and a mirror rule created next to the target completes the
// delivery from there. All concreteness checks happen before anything is
// provisioned, so a failed call leaves the rule untouched.
func (r *rule) addCrossEnvTarget(
	target IRuleTarget, id string, targetStack awscdk.Stack, targetAccount, targetRegion string,
) error {
	ruleStack := awscdk.Stack_Of(r)
	sourceAccount, sourceRegion := *ruleStack.Account(), *ruleStack.Region()

	if *awscdk.Token_IsUnresolved(targetAccount) {
		return errors.New(
			"the target stack needs a concrete account for cross-environment event targets")
	}
	if *awscdk.Token_IsUnresolved(targetRegion) {
		return errors.New(
			"the target stack needs a concrete region for cross-environment event targets")
	}
	if *awscdk.Token_IsUnresolved(sourceAccount) {
		return errors.New(
			"the rule stack needs a concrete account for cross-environment event targets")
	}
	if *ruleStack.Node().Root().Node().Addr() != *targetStack.Node().Root().Node().Addr() {
		return errors.New(
			"the rule stack and the target stack must belong to the same CDK app")
	}

	// Provisioning is deduplicated per destination environment: the key is
	// recorded before anything is created so repeat adds for the same
	// environment are pure no-ops.
	key := targetAccount + ":" + targetRegion
	if _, done := r.xEnvTargetsAdded[key]; !done {
		r.xEnvTargetsAdded[key] = struct{}{}

		busArn := crossEnvBusArn(targetStack, targetAccount, targetRegion)

		var roleArn *string
		if !agcdkutil.SameEnvDimension(targetRegion, sourceRegion) {
			roleArn = r.crossRegionPutEventsRole(busArn).RoleArn()
		}

		if !agcdkutil.SameEnvDimension(sourceAccount, targetAccount) {
			r.ensureEventBusPolicy(ruleStack, sourceAccount, targetAccount, targetRegion)
		}

		r.targets = append(r.targets, &awsevents.CfnRule_TargetProperty{
			Id:      jsii.String(id),
			Arn:     jsii.String(busArn),
			RoleArn: roleArn,
		})
	}

	mirrorScope, err := obtainMirrorRuleScope(targetStack, targetAccount, targetRegion)
	if err != nil {
		return err
	}

	mirrorProps := &RuleProps{
		Targets:     []IRuleTarget{target},
		Description: r.description,
	}
	if r.scheduleExpression != nil {
		mirrorProps.Schedule = ScheduleExpression(*r.scheduleExpression)
	}

	newRule(mirrorScope, fmt.Sprintf("%s-%s", *awscdk.Names_UniqueId(r), id), mirrorProps, r)

	return nil
}

// crossEnvBusArn is the well-known ARN of the default event bus in the
// target environment.
func crossEnvBusArn(targetStack awscdk.Stack, targetAccount, targetRegion string) string {
	return *targetStack.FormatArn(&awscdk.ArnComponents{
		Service:      jsii.String("events"),
		Resource:     jsii.String("event-bus"),
		ResourceName: jsii.String("default"),
		Account:      jsii.String(targetAccount),
		Region:       jsii.String(targetRegion),
	})
}

// crossRegionPutEventsRole returns the rule's events delivery role, creating
// it on first use. Subsequent cross-region destinations extend the existing
// role with an extra statement instead of creating another role.
func (r *rule) crossRegionPutEventsRole(busArn string) awsiam.IRole {
	if r.eventsRole == nil {
		r.eventsRole = awsiam.NewRole(r, jsii.String(eventsRoleID), &awsiam.RoleProps{
			AssumedBy: awsiam.NewServicePrincipal(jsii.String("events.amazonaws.com"), nil),
		})
	}

	r.eventsRole.AddToPrincipalPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("events:PutEvents"),
		Resources: jsii.Strings(busArn),
	}))

	return r.eventsRole
}

// ensureEventBusPolicy guarantees the source account may publish to the
// default event bus of the target environment. The granting policy lives in
// a support stack at the app root, created at most once per (source account,
// target region, target account) triple, and must deploy before the rule's
// own stack since rule creation validates target reachability.
func (r *rule) ensureEventBusPolicy(
	ruleStack awscdk.Stack, sourceAccount, targetAccount, targetRegion string,
) {
	root := ruleStack.Node().Root()
	stackID := fmt.Sprintf("EventBusPolicy-%s-%s-%s", sourceAccount, targetRegion, targetAccount)

	var policyStack awscdk.Stack
	if existing := root.Node().TryFindChild(jsii.String(stackID)); existing != nil {
		policyStack = existing.(awscdk.Stack)
	} else {
		policyStack = awscdk.NewStack(root.(constructs.Construct), jsii.String(stackID), &awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String(targetAccount),
				Region:  jsii.String(targetRegion),
			},
		})

		awsevents.NewCfnEventBusPolicy(policyStack, jsii.String("GivePermToOtherAccount"),
			&awsevents.CfnEventBusPolicyProps{
				Action:      jsii.String("events:PutEvents"),
				StatementId: jsii.String("Allow-account-" + sourceAccount),
				Principal:   jsii.String(sourceAccount),
			})
	}

	ruleStack.AddDependency(policyStack,
		jsii.String("Event bus policy must exist before the rule referencing it"))
}

// obtainMirrorRuleScope determines where the mirror rule is created. Only
// stacks this app owns in the target environment qualify: synthesizing a
// fresh stack for an imported resource is not supported.
func obtainMirrorRuleScope(
	targetStack awscdk.Stack, targetAccount, targetRegion string,
) (constructs.Construct, error) {
	if agcdkutil.SameEnvDimension(*targetStack.Account(), targetAccount) &&
		agcdkutil.SameEnvDimension(*targetStack.Region(), targetRegion) {
		return targetStack, nil
	}

	return nil, errors.Errorf(
		"cannot mirror a rule to %s/%s for an imported resource: "+
			"create a stack in the target environment and pass a resource owned by it",
		targetAccount, targetRegion)
}
