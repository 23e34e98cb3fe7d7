package agcdkevents

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// IRuleTarget is implemented by anything that can receive matched events.
type IRuleTarget interface {
	// Bind is called when the target is added to a rule. The id is the
	// binding id the rule generated for this target; implementations may
	// override it via RuleTargetConfig.ID.
	Bind(rule Rule, id string) *RuleTargetConfig
}

// RuleTargetConfig is the capability bundle a target exposes to the rule
// that binds it. Only Arn is required; the service parameter blocks are
// passed through to the rendered target untouched.
type RuleTargetConfig struct {
	// Arn is the destination receiving matched events.
	Arn *string

	// Role is assumed by the events service to publish to the destination.
	Role awsiam.IRole

	// TargetResource is the resource backing the destination, used to
	// determine the environment the destination lives in. Targets without
	// a backing resource are always treated as local.
	TargetResource constructs.IConstruct

	// ID overrides the binding id generated by the rule.
	ID *string

	// Input configures what is sent to the target in place of the
	// matched event.
	Input *TargetInput

	DeadLetterConfig     *awsevents.CfnRule_DeadLetterConfigProperty
	RetryPolicy          *awsevents.CfnRule_RetryPolicyProperty
	BatchParameters      *awsevents.CfnRule_BatchParametersProperty
	EcsParameters        *awsevents.CfnRule_EcsParametersProperty
	HttpParameters       *awsevents.CfnRule_HttpParametersProperty
	KinesisParameters    *awsevents.CfnRule_KinesisParametersProperty
	RunCommandParameters *awsevents.CfnRule_RunCommandParametersProperty
	SqsParameters        *awsevents.CfnRule_SqsParametersProperty
}

// TargetInput shapes the payload delivered to a target. At most one of
// Input, InputPath and Transformer should be set.
type TargetInput struct {
	// Input is a literal JSON payload.
	Input *string

	// InputPath selects part of the matched event via a JSONPath.
	InputPath *string

	// Transformer builds the payload from extracted event paths.
	Transformer *InputTransformation
}

// InputTransformation extracts values from the matched event (PathsMap)
// and interpolates them into Template. A transformation without a template
// is not rendered.
type InputTransformation struct {
	Template string
	PathsMap map[string]string
}

// EventBusTarget forwards matched events to another event bus.
type EventBusTarget struct {
	bus  awsevents.IEventBus
	role awsiam.IRole
}

// NewEventBusTarget creates a target publishing to the given bus. The role,
// when non-nil, is used by the events service for the delivery.
func NewEventBusTarget(bus awsevents.IEventBus, role awsiam.IRole) *EventBusTarget {
	return &EventBusTarget{bus: bus, role: role}
}

func (t *EventBusTarget) Bind(_ Rule, _ string) *RuleTargetConfig {
	return &RuleTargetConfig{
		Arn:            t.bus.EventBusArn(),
		Role:           t.role,
		TargetResource: t.bus,
	}
}

// QueueTarget delivers matched events to an SQS queue.
type QueueTarget struct {
	queue awssqs.IQueue

	// MessageGroupId is required for FIFO queues.
	MessageGroupId *string

	// Input overrides the payload sent to the queue.
	Input *TargetInput
}

// NewQueueTarget creates a target delivering to the given queue.
func NewQueueTarget(queue awssqs.IQueue) *QueueTarget {
	return &QueueTarget{queue: queue}
}

func (t *QueueTarget) Bind(_ Rule, _ string) *RuleTargetConfig {
	cfg := &RuleTargetConfig{
		Arn:            t.queue.QueueArn(),
		TargetResource: t.queue,
		Input:          t.Input,
	}

	if t.MessageGroupId != nil {
		cfg.SqsParameters = &awsevents.CfnRule_SqsParametersProperty{
			MessageGroupId: t.MessageGroupId,
		}
	}

	return cfg
}

// renderTargetProperty shapes a bound target into the persisted form.
func renderTargetProperty(id string, cfg *RuleTargetConfig) *awsevents.CfnRule_TargetProperty {
	prop := &awsevents.CfnRule_TargetProperty{
		Id:                   jsii.String(id),
		Arn:                  cfg.Arn,
		DeadLetterConfig:     cfg.DeadLetterConfig,
		RetryPolicy:          cfg.RetryPolicy,
		BatchParameters:      cfg.BatchParameters,
		EcsParameters:        cfg.EcsParameters,
		HttpParameters:       cfg.HttpParameters,
		KinesisParameters:    cfg.KinesisParameters,
		RunCommandParameters: cfg.RunCommandParameters,
		SqsParameters:        cfg.SqsParameters,
	}

	if cfg.Role != nil {
		prop.RoleArn = cfg.Role.RoleArn()
	}

	if in := cfg.Input; in != nil {
		prop.Input = in.Input
		prop.InputPath = in.InputPath

		if tf := in.Transformer; tf != nil && tf.Template != "" {
			transformer := &awsevents.CfnRule_InputTransformerProperty{
				InputTemplate: jsii.String(tf.Template),
			}
			if len(tf.PathsMap) > 0 {
				paths := make(map[string]*string, len(tf.PathsMap))
				for k, v := range tf.PathsMap {
					paths[k] = jsii.String(v)
				}
				transformer.InputPathsMap = &paths
			}
			prop.InputTransformer = transformer
		}
	}

	return prop
}
