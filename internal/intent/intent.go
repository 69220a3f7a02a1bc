package intent

import (
	log "log/slog"
	"strings"
)

// Unknown is returned when no rule matches.
const Unknown = "unknown"

// Rule maps an intent name to the keywords that trigger it.
type Rule struct {
	Name     string
	Keywords []string
}

// Detector does first-match keyword spotting. Rules are tried in table order
// and keywords in list order; the first case-insensitive substring hit wins.
type Detector struct {
	rules []Rule
}

func NewDetector(rules []Rule) *Detector {
	d := &Detector{rules: make([]Rule, 0, len(rules))}

	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			kw = append(kw, k)
		}
		d.rules = append(d.rules, Rule{Name: r.Name, Keywords: kw})
	}

	return d
}

func (d *Detector) Detect(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Unknown
	}

	for _, r := range d.rules {
		for _, k := range r.Keywords {
			if strings.Contains(t, k) {
				log.Info("Intent detected", "intent", r.Name, "matched", k)
				return r.Name
			}
		}
	}

	log.Info("Intent detected", "intent", Unknown)
	return Unknown
}

// Keywords returns the normalized keywords of an intent, or nil.
func (d *Detector) Keywords(name string) []string {
	for _, r := range d.rules {
		if r.Name == name {
			return append([]string(nil), r.Keywords...)
		}
	}
	return nil
}

func (d *Detector) Intents() []string {
	out := make([]string, len(d.rules))
	for i, r := range d.rules {
		out[i] = r.Name
	}
	return out
}
