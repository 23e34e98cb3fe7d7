// Package agcdkevents provides an EventBridge rule construct with
// cross-account and cross-region target support.
//
// A Rule matches events by pattern or schedule and dispatches them to
// targets. Targets that live in another account or region are handled
// transparently: the rule forwards matched events to the default event
// bus of the target environment and a mirror rule is created alongside
// the target to complete the delivery. The event-bus permissions and
// IAM roles needed to make this legal are provisioned on demand and
// deduplicated per destination environment.
package agcdkevents
