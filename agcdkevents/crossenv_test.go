package agcdkevents

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
)

func TestCrossAccountTarget(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	ruleStack := newTestStack(app, "RuleStack", "111111111111", "us-east-1")
	targetStack := newTestStack(app, "TargetStack", "222222222222", "us-east-1")
	queue := awssqs.NewQueue(targetStack, jsii.String("Queue"), nil)

	r := New(ruleStack, "MyRule", &RuleProps{
		Schedule: ScheduleRate(10 * time.Minute),
	})
	if err := r.AddTarget(NewQueueTarget(queue)); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}

	// The rule forwards to the default event bus of the target account
	// without an extra delivery role since the region is the same.
	ruleTemplate := assertions.Template_FromStack(ruleStack, nil)
	ruleTemplate.ResourceCountIs(jsii.String("AWS::IAM::Role"), jsii.Number(0))
	ruleTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"ScheduleExpression": "rate(10 minutes)",
		"Targets": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{
				"Id":  "Target0",
				"Arn": assertions.Match_AnyValue(),
			}),
		},
	})

	// Publishing across accounts requires a resource policy on the target
	// bus, delivered through a support stack in the target environment.
	policyStackID := "EventBusPolicy-111111111111-us-east-1-222222222222"
	child := app.Node().TryFindChild(jsii.String(policyStackID))
	if child == nil {
		t.Fatalf("expected support stack %s at the app root", policyStackID)
	}
	policyStack := child.(awscdk.Stack)

	policyTemplate := assertions.Template_FromStack(policyStack, nil)
	policyTemplate.HasResourceProperties(jsii.String("AWS::Events::EventBusPolicy"),
		map[string]interface{}{
			"Action":      "events:PutEvents",
			"StatementId": "Allow-account-111111111111",
			"Principal":   "111111111111",
		})

	dependsOnPolicy := false
	for _, dep := range *ruleStack.Dependencies() {
		if *dep.StackName() == *policyStack.StackName() {
			dependsOnPolicy = true
		}
	}
	if !dependsOnPolicy {
		t.Error("the rule stack should deploy after the event bus policy stack")
	}

	// The mirror rule lives next to the queue and repeats the schedule.
	targetTemplate := assertions.Template_FromStack(targetStack, nil)
	targetTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"ScheduleExpression": "rate(10 minutes)",
		"Targets": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Id": "Target0"}),
		},
	})
}

func TestCrossRegionTargetCreatesDeliveryRole(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	ruleStack := newTestStack(app, "RuleStack", "111111111111", "us-east-1")
	targetStack := newTestStack(app, "TargetStack", "111111111111", "eu-west-1")
	queue := awssqs.NewQueue(targetStack, jsii.String("Queue"), nil)

	r := New(ruleStack, "MyRule", &RuleProps{
		EventPattern: &EventPattern{Source: []string{"my.app"}},
	})
	if err := r.AddTarget(NewQueueTarget(queue)); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}

	ruleTemplate := assertions.Template_FromStack(ruleStack, nil)
	ruleTemplate.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"AssumeRolePolicyDocument": assertions.Match_ObjectLike(&map[string]interface{}{
			"Statement": []interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Principal": map[string]interface{}{
						"Service": "events.amazonaws.com",
					},
				}),
			},
		}),
	})
	ruleTemplate.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
		"PolicyDocument": assertions.Match_ObjectLike(&map[string]interface{}{
			"Statement": []interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Action": "events:PutEvents",
				}),
			},
		}),
	})
	ruleTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"Targets": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{
				"Id":      "Target0",
				"RoleArn": assertions.Match_AnyValue(),
			}),
		},
	})

	// Same account: no bus policy support stack is needed.
	for _, child := range *app.Node().Children() {
		if strings.HasPrefix(*child.Node().Id(), "EventBusPolicy-") {
			t.Errorf("unexpected support stack %s", *child.Node().Id())
		}
	}

	// The mirror rule repeats the pattern of the source rule.
	targetTemplate := assertions.Template_FromStack(targetStack, nil)
	targetTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"EventPattern": map[string]interface{}{
			"source": []interface{}{"my.app"},
		},
	})
}

func TestCrossEnvTargetsDeduplicatePerEnvironment(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	ruleStack := newTestStack(app, "RuleStack", "111111111111", "us-east-1")
	targetStack := newTestStack(app, "TargetStack", "222222222222", "us-east-1")
	queue1 := awssqs.NewQueue(targetStack, jsii.String("Queue1"), nil)
	queue2 := awssqs.NewQueue(targetStack, jsii.String("Queue2"), nil)

	r := New(ruleStack, "MyRule", &RuleProps{
		EventPattern: &EventPattern{Source: []string{"my.app"}},
	})
	if err := r.AddTarget(NewQueueTarget(queue1)); err != nil {
		t.Fatalf("AddTarget queue1: %v", err)
	}
	if err := r.AddTarget(NewQueueTarget(queue2)); err != nil {
		t.Fatalf("AddTarget queue2: %v", err)
	}

	// One forwarding entry per destination environment, no matter how many
	// targets live there.
	ruleTemplate := assertions.Template_FromStack(ruleStack, nil)
	ruleTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"Targets": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Id": "Target0"}),
		},
	})

	// Each target still gets its own mirror rule.
	targetTemplate := assertions.Template_FromStack(targetStack, nil)
	targetTemplate.ResourceCountIs(jsii.String("AWS::Events::Rule"), jsii.Number(2))
}

func TestCrossEnvTargetMergedPatternReachesMirror(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	ruleStack := newTestStack(app, "RuleStack", "111111111111", "us-east-1")
	targetStack := newTestStack(app, "TargetStack", "222222222222", "us-east-1")
	queue := awssqs.NewQueue(targetStack, jsii.String("Queue"), nil)

	r := New(ruleStack, "MyRule", &RuleProps{
		EventPattern: &EventPattern{Source: []string{"aws.ec2"}},
	})
	if err := r.AddTarget(NewQueueTarget(queue)); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}

	// Pattern content added after mirroring still shows up in the mirror.
	if err := r.AddEventPattern(&EventPattern{Source: []string{"aws.s3"}}); err != nil {
		t.Fatalf("AddEventPattern: %v", err)
	}

	targetTemplate := assertions.Template_FromStack(targetStack, nil)
	targetTemplate.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"EventPattern": map[string]interface{}{
			"source": []interface{}{"aws.ec2", "aws.s3"},
		},
	})
}

func TestCrossEnvTargetErrors(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	otherApp := awscdk.NewApp(nil)

	concreteRuleStack := newTestStack(app, "RuleStack", "111111111111", "us-east-1")
	envlessTargetStack := newTestStack(app, "RegionOnlyStack", "", "eu-west-1")
	accountOnlyRuleStack := newTestStack(app, "AccountlessRuleStack", "", "us-east-1")
	concreteTargetStack := newTestStack(app, "TargetStack", "222222222222", "eu-west-1")
	foreignStack := newTestStack(otherApp, "ForeignStack", "222222222222", "us-east-1")

	tests := []struct {
		name      string
		ruleStack awscdk.Stack
		queue     awssqs.IQueue
		wantErr   string
	}{
		{
			name:      "target account unresolved",
			ruleStack: concreteRuleStack,
			queue:     awssqs.NewQueue(envlessTargetStack, jsii.String("Queue"), nil),
			wantErr:   "the target stack needs a concrete account",
		},
		{
			name:      "source account unresolved",
			ruleStack: accountOnlyRuleStack,
			queue:     awssqs.NewQueue(concreteTargetStack, jsii.String("Queue"), nil),
			wantErr:   "the rule stack needs a concrete account",
		},
		{
			name:      "target in another app",
			ruleStack: concreteRuleStack,
			queue:     awssqs.NewQueue(foreignStack, jsii.String("Queue"), nil),
			wantErr:   "must belong to the same CDK app",
		},
		{
			name:      "imported resource in a foreign environment",
			ruleStack: concreteRuleStack,
			queue: awssqs.Queue_FromQueueArn(concreteRuleStack, jsii.String("Imported"),
				jsii.String("arn:aws:sqs:eu-central-1:333333333333:external-queue")),
			wantErr: "cannot mirror a rule",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.ruleStack, fmt.Sprintf("Rule%d", i), &RuleProps{
				EventPattern: &EventPattern{Source: []string{"my.app"}},
			})

			err := r.AddTarget(NewQueueTarget(tt.queue))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
