// Auto-trigger rules let operators declare, in a YAML file, the grid
// conditions that should open a new event without a human calling
// create_grid_event directly, using gopkg.in/yaml.v3 to parse the rule-set
// document (this file is the module's only YAML consumer).
// The predicate language here is a small closed set of
// comparisons rather than an embedded expression evaluator, so the rule
// set stays auditable.
package gridservice

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleComparator is the closed set of predicate comparisons a Rule may
// use against a GridCondition field.
type RuleComparator string

const (
	CmpLoadAboveMW           RuleComparator = "load_above_mw"
	CmpCapacityUtilAboveBp   RuleComparator = "capacity_util_above_bp" // load/capacity in basis points
	CmpFrequencyBelowCentiHz RuleComparator = "frequency_below_centihz"
	CmpRenewableBelowPercent RuleComparator = "renewable_below_percent"
)

// Rule is an ordered auto-trigger predicate over GridCondition:
// when Comparator holds against Threshold and Cooldown has elapsed
// since the rule's last fire, it creates an event from the rule's
// template fields, with compensation = default_rate * severity.
type Rule struct {
	Name              string         `yaml:"name"`
	Comparator        RuleComparator `yaml:"comparator"`
	Threshold         uint64         `yaml:"threshold"`
	CooldownSeconds   uint64         `yaml:"cooldown_seconds"`
	EventType         GridEventType  `yaml:"-"`
	EventTypeName     string         `yaml:"event_type"`
	DurationMinutes   uint64         `yaml:"duration_minutes"`
	TargetReductionKW uint64         `yaml:"target_reduction_kw"`
	Severity          uint8          `yaml:"severity"`

	lastFired time.Time
}

type ruleSetFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRuleSet parses a YAML auto-trigger rule-set document, rejecting any
// set larger than maxRules.
func LoadRuleSet(doc []byte, maxRules int) ([]Rule, error) {
	var parsed ruleSetFile
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("gridservice: parse rule set: %w", err)
	}
	if len(parsed.Rules) > maxRules {
		return nil, ErrTooManyRules
	}
	for i := range parsed.Rules {
		et, err := parseEventTypeName(parsed.Rules[i].EventTypeName)
		if err != nil {
			return nil, fmt.Errorf("gridservice: rule %q: %w", parsed.Rules[i].Name, err)
		}
		parsed.Rules[i].EventType = et
		if parsed.Rules[i].Severity < 1 || parsed.Rules[i].Severity > 5 {
			return nil, fmt.Errorf("gridservice: rule %q: severity must be in [1,5]", parsed.Rules[i].Name)
		}
	}
	return parsed.Rules, nil
}

func parseEventTypeName(name string) (GridEventType, error) {
	switch name {
	case "DemandResponse":
		return EventTypeDemandResponse, nil
	case "FrequencyRegulation":
		return EventTypeFrequencyRegulation, nil
	case "PeakShaving":
		return EventTypePeakShaving, nil
	case "LoadBalancing":
		return EventTypeLoadBalancing, nil
	case "Emergency":
		return EventTypeEmergency, nil
	default:
		return 0, fmt.Errorf("unknown event_type %q", name)
	}
}

// evaluate reports whether the rule's predicate currently holds against
// cond, ignoring cooldown.
func (r Rule) evaluate(cond GridCondition) bool {
	switch r.Comparator {
	case CmpLoadAboveMW:
		return cond.LoadMW > r.Threshold
	case CmpCapacityUtilAboveBp:
		if cond.CapacityMW == 0 {
			return false
		}
		utilBp := cond.LoadMW * 10000 / cond.CapacityMW
		return utilBp > r.Threshold
	case CmpFrequencyBelowCentiHz:
		return cond.FrequencyCentiHz < r.Threshold
	case CmpRenewableBelowPercent:
		return uint64(cond.RenewablePercent) < r.Threshold
	default:
		return false
	}
}

func (r Rule) cooledDown(now time.Time) bool {
	if r.lastFired.IsZero() {
		return true
	}
	return now.Sub(r.lastFired) >= time.Duration(r.CooldownSeconds)*time.Second
}
