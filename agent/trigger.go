package agent

import "fmt"

// Trigger records what started a publish run.
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// ParseTrigger accepts "cron" or "manual"; empty means manual.
func ParseTrigger(s string) (Trigger, error) {
	switch Trigger(s) {
	case "", TriggerManual:
		return TriggerManual, nil
	case TriggerCron:
		return TriggerCron, nil
	default:
		return "", fmt.Errorf("unknown trigger %q (want cron or manual)", s)
	}
}

func (t Trigger) orDefault() Trigger {
	if t == "" {
		return TriggerManual
	}
	return t
}

// triggerOf maps a caller-supplied metadata value onto a known trigger.
// Anything that is not "cron" or "manual" counts as manual, which keeps
// metric labels and status records bounded.
func triggerOf(v any) Trigger {
	s, ok := v.(string)
	if !ok {
		return TriggerManual
	}
	t, err := ParseTrigger(s)
	if err != nil {
		return TriggerManual
	}
	return t
}
