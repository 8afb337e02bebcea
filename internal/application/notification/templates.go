// Package notification composes and sends customer SMS and email from the
// event dispatch table, records every dispatch and exposes the admin
// automation toggles.
package notification

import (
	_ "embed"
	"fmt"

	"github.com/homestead/backend/internal/domain/notification"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// LoadTemplates parses the embedded dispatch table. Every known event must
// have a template with both channels filled in.
func LoadTemplates() (map[string]notification.Template, error) {
	return parseTemplates(templatesYAML)
}

func parseTemplates(data []byte) (map[string]notification.Template, error) {
	table := map[string]notification.Template{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	for name := range table {
		if !notification.IsKnownEvent(name) {
			return nil, fmt.Errorf("notification template %q is not a known event", name)
		}
	}
	for _, name := range notification.AllEvents {
		tpl, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("notification template %q is missing", name)
		}
		if tpl.SMS == "" || tpl.Email.Subject == "" || tpl.Email.Text == "" {
			return nil, fmt.Errorf("notification template %q is incomplete", name)
		}
	}
	return table, nil
}
